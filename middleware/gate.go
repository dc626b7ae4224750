package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/rs/zerolog"
)

// RejectFunc writes the response for a request the gate refuses. The gate
// sets WWW-Authenticate before calling it.
type RejectFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

// GateConfig configures Gate.
type GateConfig struct {
	Policy Policy
	// Realm is used in Basic and Bearer challenges.
	Realm string
	// OnReject renders protected-zone rejections. Exchange failures always
	// use the {"error": msg} body.
	OnReject RejectFunc
	Logger   zerolog.Logger
}

// Gate classifies every request by cfg.Policy and enforces the matching check.
func Gate(auth Authenticator, cfg GateConfig) func(http.Handler) http.Handler {
	if cfg.Realm == "" {
		cfg.Realm = "goLedger"
	}
	if cfg.OnReject == nil {
		cfg.OnReject = writeJSONError
	}
	log := cfg.Logger.With().Str("component", "gate").Logger()

	return func(next http.Handler) http.Handler {
		protected := guard(auth, cfg.Policy.RequiredScope, cfg.Realm, cfg.OnReject)(next)
		exchange := exchangeHandler(auth, cfg.Policy.ExchangeMethod, cfg.Realm, log)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch cfg.Policy.Classify(r.URL.Path) {
			case ZonePublic:
				next.ServeHTTP(w, r)
			case ZoneExchange:
				exchange.ServeHTTP(w, r)
			default:
				protected.ServeHTTP(w, r)
			}
		})
	}
}

// exchangeHandler answers 405 for any method other than method without
// calling the authenticator.
func exchangeHandler(auth Authenticator, method, realm string, log zerolog.Logger) func(http.Handler) http.Handler {
	if method == "" {
		method = http.MethodPost
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.Header().Set("Allow", method)
				writeErrorBody(w, http.StatusMethodNotAllowed, "Request method '"+r.Method+"' is not supported")
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok || auth == nil {
				challengeBasic(w, realm)
				return
			}

			res, err := auth.IssueToken(r.Context(), username, password)
			switch {
			case err == nil:
			case errors.Is(err, goLedger.ErrAuthenticationFailed):
				challengeBasic(w, realm)
				return
			case errors.Is(err, goLedger.ErrExchangeRateLimited):
				writeErrorBody(w, http.StatusTooManyRequests, err.Error())
				return
			default:
				log.Error().Err(err).Msg("credential exchange failed")
				writeErrorBody(w, http.StatusInternalServerError, "Authentication service unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), tokenResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func challengeBasic(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	writeErrorBody(w, http.StatusUnauthorized, goLedger.ErrAuthenticationFailed.Error())
}

func writeErrorBody(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSONError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	msg := err.Error()
	if errors.Is(err, goLedger.ErrTokenInvalid) {
		msg = goLedger.ErrTokenInvalid.Error()
	}
	writeErrorBody(w, status, msg)
}
