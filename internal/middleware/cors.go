package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/haguru/schooladmin/config"
)

const (
	HeaderOrigin        = "Origin"
	HeaderAllowOrigin   = "Access-Control-Allow-Origin"
	HeaderAllowMethods  = "Access-Control-Allow-Methods"
	HeaderAllowHeaders  = "Access-Control-Allow-Headers"
	HeaderVary          = "Vary"
	wildcardOrigin      = "*"
	headerListSeparator = ", "
)

// CORS sets the cross-origin headers on every response and answers OPTIONS
// preflights with a bare 200.
func CORS(cfg config.CORSConfig) Middleware {
	allowAny := slices.Contains(cfg.AllowedOrigins, wildcardOrigin)
	methods := strings.Join(cfg.AllowedMethods, headerListSeparator)
	headers := strings.Join(cfg.AllowedHeaders, headerListSeparator)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if allowAny {
				h.Set(HeaderAllowOrigin, wildcardOrigin)
			} else if origin := r.Header.Get(HeaderOrigin); origin != "" {
				h.Add(HeaderVary, HeaderOrigin)
				if slices.Contains(cfg.AllowedOrigins, origin) {
					h.Set(HeaderAllowOrigin, origin)
				}
			}
			if methods != "" {
				h.Set(HeaderAllowMethods, methods)
			}
			if headers != "" {
				h.Set(HeaderAllowHeaders, headers)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
