package auth

import "net/http"

// Middleware returns an HTTP middleware that requires a valid bearer key.
// A nil verifier disables the check.
func Middleware(verifier *KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, err := ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
				return
			}
			if err := verifier.Verify(token); err != nil {
				http.Error(w, "Unauthorized: invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
