package middleware

import "net/http"

// Chain composes wrappers around the capture API mux. The first listed
// wrapper is the outermost: Chain(A, B)(mux) serves a request through A,
// then B, then the mux.
func Chain(wrappers ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		for i := len(wrappers) - 1; i >= 0; i-- {
			inner = wrappers[i](inner)
		}
		return inner
	}
}
