package twitter

import (
	"regexp"

	"github.com/pagepeek/pagepeek-go/internal/types"
)

// statusURLPattern matches status URLs on twitter.com, x.com and their
// mobile subdomains.
var statusURLPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)`)

// maxTweetIDLength bounds a snowflake ID; real IDs are at most 19 digits.
const maxTweetIDLength = 20

// ExtractTweetID pulls the numeric post ID out of a status URL.
func ExtractTweetID(rawURL string) (string, error) {
	matches := statusURLPattern.FindStringSubmatch(rawURL)
	if len(matches) < 2 {
		return "", types.ErrInvalidPostID
	}
	id := matches[1]
	if len(id) > maxTweetIDLength {
		return "", types.ErrInvalidPostID
	}
	return id, nil
}

// IsStatusURL reports whether the URL points at an individual post.
func IsStatusURL(rawURL string) bool {
	return statusURLPattern.MatchString(rawURL)
}
