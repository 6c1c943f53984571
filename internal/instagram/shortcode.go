package instagram

import (
	"regexp"

	"github.com/pagepeek/pagepeek-go/internal/types"
)

// postURLPattern matches post, reel and IGTV URLs.
var postURLPattern = regexp.MustCompile(`instagram\.com/(?:[\w.]+/)?(?:p|reel|reels|tv)/([A-Za-z0-9_-]+)`)

// ExtractShortcode pulls the post shortcode out of a post URL.
func ExtractShortcode(rawURL string) (string, error) {
	matches := postURLPattern.FindStringSubmatch(rawURL)
	if len(matches) < 2 {
		return "", types.ErrInvalidPostID
	}
	return matches[1], nil
}

// IsPostURL reports whether the URL points at an individual post.
func IsPostURL(rawURL string) bool {
	return postURLPattern.MatchString(rawURL)
}
