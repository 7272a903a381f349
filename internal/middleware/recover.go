package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/models/dto"
)

const msgInternalServerError = "Internal server error"

// Recover turns a panicking handler into a 500 envelope. The panic value is
// logged, never sent to the client.
func Recover(logger interfaces.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("handler panicked",
					"path", r.URL.Path,
					"error", fmt.Errorf("%v", rec),
					"stack", string(debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(dto.Envelope{Success: false, Message: msgInternalServerError})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
