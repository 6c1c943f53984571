// Package blocklist provides the ad/tracker filter engine. Rule lists are
// fetched once at startup, compiled into an immutable host set, and shared by
// every browser session. The engine is safe for concurrent readers and is
// never mutated after construction.
package blocklist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// maxListResponseSize bounds a single remote rule list (10MB).
const maxListResponseSize = 10 * 1024 * 1024

// fetchTimeout bounds one remote list download.
const fetchTimeout = 20 * time.Second

// Engine holds a compiled set of blocked hostnames. A lookup matches a host
// or any of its parent domains.
type Engine struct {
	hosts map[string]struct{}
	// Count of rules that came from remote sources, for observability.
	remoteRules int
}

// New builds an engine from the embedded default rules plus any remote list
// URLs. A source that fails to download or parse is logged and skipped;
// blocking degrades rather than failing the process.
func New(ctx context.Context, sourceURLs []string) *Engine {
	hosts := make(map[string]struct{}, len(defaultHosts))
	for _, h := range defaultHosts {
		hosts[h] = struct{}{}
	}

	engine := &Engine{hosts: hosts}

	client := &http.Client{Timeout: fetchTimeout}
	for _, src := range sourceURLs {
		added, err := engine.loadRemote(ctx, client, src)
		if err != nil {
			log.Warn().Err(err).Str("source", src).Msg("Blocklist source skipped")
			continue
		}
		engine.remoteRules += added
		log.Info().Str("source", src).Int("rules", added).Msg("Blocklist source loaded")
	}

	log.Info().
		Int("total_hosts", len(engine.hosts)).
		Int("remote_rules", engine.remoteRules).
		Msg("Blocklist engine compiled")

	return engine
}

// loadRemote downloads one rule list and merges its hosts. Returns the number
// of rules added.
func (e *Engine) loadRemote(ctx context.Context, client *http.Client, src string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return e.parseRules(io.LimitReader(resp.Body, maxListResponseSize))
}

// parseRules reads rule lines and merges the hostnames they name. Supported
// formats: hosts-file entries ("0.0.0.0 example.com"), plain hostnames, and
// adblock host anchors ("||example.com^"). Everything else is ignored.
func (e *Engine) parseRules(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	added := 0
	for scanner.Scan() {
		host := parseRuleLine(scanner.Text())
		if host == "" {
			continue
		}
		if _, ok := e.hosts[host]; !ok {
			e.hosts[host] = struct{}{}
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("read rules: %w", err)
	}
	return added, nil
}

// parseRuleLine extracts a hostname from one rule line, or "" if the line
// carries no usable host rule.
func parseRuleLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ""
	}

	// Adblock host anchor: ||example.com^ (element-hiding and path rules
	// are out of scope for a host-level engine).
	if strings.HasPrefix(line, "||") {
		rest := strings.TrimPrefix(line, "||")
		if idx := strings.IndexAny(rest, "^/$"); idx >= 0 {
			rest = rest[:idx]
		}
		return normalizeHost(rest)
	}

	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
		return normalizeHost(fields[0])
	case 2:
		// hosts-file format: sink address then hostname
		if fields[0] == "0.0.0.0" || fields[0] == "127.0.0.1" || fields[0] == "::" {
			return normalizeHost(fields[1])
		}
	}
	return ""
}

// normalizeHost lowercases and rejects values that cannot be hostnames.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || host == "localhost" || !strings.Contains(host, ".") {
		return ""
	}
	if strings.ContainsAny(host, "/:*?# ") {
		return ""
	}
	return host
}

// Match reports whether a hostname (or any parent domain) is blocked.
func (e *Engine) Match(host string) bool {
	host = strings.ToLower(host)
	if _, ok := e.hosts[host]; ok {
		return true
	}
	// Walk parent domains: sub.ads.example.com → ads.example.com → example.com
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
		if _, ok := e.hosts[host]; ok {
			return true
		}
	}
}

// Size returns the number of compiled host rules.
func (e *Engine) Size() int {
	return len(e.hosts)
}

// RemoteRules returns how many rules came from remote sources.
func (e *Engine) RemoteRules() int {
	return e.remoteRules
}
