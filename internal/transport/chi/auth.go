package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerScheme = "Bearer "

// publicPaths answer without a key so probes and scrapers need no secret.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// apiKeys holds SHA-256 digests of the accepted keys, compared in constant
// time.
type apiKeys [][sha256.Size]byte

func newAPIKeys(keys []string) apiKeys {
	var out apiKeys
	for _, k := range keys {
		if k != "" {
			out = append(out, sha256.Sum256([]byte(k)))
		}
	}
	return out
}

func (ks apiKeys) accepts(token string) bool {
	sum := sha256.Sum256([]byte(token))
	ok := 0
	for i := range ks {
		ok |= subtle.ConstantTimeCompare(ks[i][:], sum[:])
	}
	return ok == 1
}

// RequireAPIKey rejects requests without a known Bearer token. With no
// non-empty keys it lets everything through.
func RequireAPIKey(keys []string) func(http.Handler) http.Handler {
	accepted := newAPIKeys(keys)
	return func(next http.Handler) http.Handler {
		if len(accepted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			token, msg := bearerToken(r)
			if msg == "" && !accepted.accepts(token) {
				msg = "invalid api key"
			}
			if msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="aerolab"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token, or explains why there is none.
func bearerToken(r *http.Request) (token, problem string) {
	auth := r.Header.Get("Authorization")
	switch {
	case auth == "":
		return "", "missing authorization header"
	case !strings.HasPrefix(auth, bearerScheme):
		return "", "authorization header must use Bearer scheme"
	}
	return strings.TrimPrefix(auth, bearerScheme), ""
}
