package server

import "net/http"

// HeaderPolicy holds the response headers the development server adds to
// everything it serves.
type HeaderPolicy struct {
	XFrameOptions       string
	XContentTypeNoSniff bool
	ReferrerPolicy      string
	// NoStore disables browser caching so a reload always fetches the
	// latest build.
	NoStore bool
}

// DevelopmentHeaderPolicy returns the policy used by jaff serve.
func DevelopmentHeaderPolicy() *HeaderPolicy {
	return &HeaderPolicy{
		XFrameOptions:       "SAMEORIGIN",
		XContentTypeNoSniff: true,
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		NoStore:             true,
	}
}

// Headers returns middleware applying policy to every response.
func Headers(policy *HeaderPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applyHeaders(w.Header(), policy)
			next.ServeHTTP(w, r)
		})
	}
}

func applyHeaders(h http.Header, policy *HeaderPolicy) {
	if policy == nil {
		return
	}
	if policy.XFrameOptions != "" {
		h.Set("X-Frame-Options", policy.XFrameOptions)
	}
	if policy.XContentTypeNoSniff {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if policy.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", policy.ReferrerPolicy)
	}
	if policy.NoStore {
		h.Set("Cache-Control", "no-store")
	}
}
