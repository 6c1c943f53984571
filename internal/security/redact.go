package security

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameter names that likely contain secrets and
// must never reach the logs.
var sensitiveParams = []string{
	"password", "passwd", "pwd", "secret", "token", "api_key", "apikey",
	"api-key", "auth", "authorization", "bearer", "credential", "key",
	"access_token", "refresh_token", "session", "sessionid", "sid",
}

// RedactURL removes credentials and secret-looking query parameters from a
// URL so it can be logged safely. Unparseable input is replaced wholesale.
func RedactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid-url]"
	}

	if parsed.User != nil {
		parsed.User = url.User("[REDACTED]")
	}

	if parsed.RawQuery != "" {
		query := parsed.Query()
		changed := false
		for name := range query {
			if isSensitiveParam(name) {
				query.Set(name, "[REDACTED]")
				changed = true
			}
		}
		if changed {
			parsed.RawQuery = query.Encode()
		}
	}

	return parsed.String()
}

func isSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range sensitiveParams {
		if lower == p {
			return true
		}
	}
	return false
}
