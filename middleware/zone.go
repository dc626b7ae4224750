package middleware

import (
	"net/http"
	"strings"
)

// Zone is the policy class of a request path.
type Zone int

const (
	ZoneProtected Zone = iota
	ZonePublic
	ZoneExchange
)

func (z Zone) String() string {
	switch z {
	case ZonePublic:
		return "public"
	case ZoneExchange:
		return "exchange"
	default:
		return "protected"
	}
}

// Policy describes which paths belong to which zone. Anything not listed
// is protected.
type Policy struct {
	PublicPaths    []string
	PublicPrefixes []string
	ExchangePath   string
	// ExchangeMethod is the only method accepted on ExchangePath. Empty
	// means POST.
	ExchangeMethod string
	// RequiredScope is checked on protected routes when not empty.
	RequiredScope string
}

// DefaultPolicy returns the service's route classification.
func DefaultPolicy() Policy {
	return Policy{
		PublicPaths:    []string{"/health", "/api/auth/signup"},
		PublicPrefixes: []string{"/v3/api-docs", "/swagger-ui"},
		ExchangePath:   "/api/auth/token",
		ExchangeMethod: http.MethodPost,
		RequiredScope:  "USER",
	}
}

// Classify returns the zone for path. The exchange path wins over the
// public lists.
func (p Policy) Classify(path string) Zone {
	if p.ExchangePath != "" && path == p.ExchangePath {
		return ZoneExchange
	}
	for _, exact := range p.PublicPaths {
		if path == exact {
			return ZonePublic
		}
	}
	for _, prefix := range p.PublicPrefixes {
		if matchesPrefix(path, prefix) {
			return ZonePublic
		}
	}
	return ZoneProtected
}

// matchesPrefix matches "/docs", "/docs/..." and "/docs.yaml" but not "/docsx".
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	switch path[len(prefix)] {
	case '/', '.':
		return true
	}
	return false
}
