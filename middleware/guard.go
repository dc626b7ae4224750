package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/MrEthical07/goLedger/ledger"
)

// Authenticator is the part of *goLedger.Engine the gate calls.
type Authenticator interface {
	IssueToken(ctx context.Context, username, password string) (*goLedger.TokenResult, error)
	Validate(ctx context.Context, token, requiredScope string) (*goLedger.AuthResult, error)
}

type authResultContextKey struct{}
type tokenResultContextKey struct{}

// AuthResultFromContext returns the verified token of a protected request.
func AuthResultFromContext(ctx context.Context) (*goLedger.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goLedger.AuthResult)
	return res, ok
}

// TokenResultFromContext returns the token minted for an exchange request.
func TokenResultFromContext(ctx context.Context) (*goLedger.TokenResult, bool) {
	res, ok := ctx.Value(tokenResultContextKey{}).(*goLedger.TokenResult)
	return res, ok
}

// Guard requires a bearer token carrying scope on every request it wraps.
func Guard(auth Authenticator, scope string) func(http.Handler) http.Handler {
	return guard(auth, scope, "goLedger", writeJSONError)
}

func guard(auth Authenticator, scope, realm string, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`"`)
				reject(w, r, http.StatusUnauthorized, goLedger.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+realm+`"`)
				reject(w, r, http.StatusUnauthorized, errMissingToken)
				return
			}

			res, err := auth.Validate(r.Context(), token, scope)
			if err != nil {
				if errors.Is(err, goLedger.ErrInsufficientScope) {
					w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
					reject(w, r, http.StatusForbidden, err)
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				reject(w, r, http.StatusUnauthorized, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			ctx = ledger.WithActor(ctx, res.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errMissingToken = errors.New("Full authentication is required to access this resource")

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
