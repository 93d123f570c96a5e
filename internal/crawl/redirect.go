package crawl

import (
	"errors"
	"net/http"
)

// DefaultMaxRedirects caps the redirect chain a single fetch will follow.
const DefaultMaxRedirects = 5

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectPolicy returns a CheckRedirect function that follows redirects
// until the number of hops reaches maxHops, then returns
// ErrTooManyRedirects. When maxHops is <= 0, redirects fall back to the
// default http client limit (10).
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}

		return nil
	}
}
