package httpapi

import (
	"context"
	"net/http"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/MrEthical07/goLedger/ledger"
	"github.com/MrEthical07/goLedger/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Identity is the engine surface the API needs.
type Identity interface {
	middleware.Authenticator
	SignUp(ctx context.Context, req goLedger.SignUpRequest) (*goLedger.SignUpResult, error)
	ListUsers(ctx context.Context) ([]goLedger.UserInfo, error)
	DeleteUser(ctx context.Context, username string) error
}

// Accounts is the ledger surface the API needs.
type Accounts interface {
	CreateAccount(ctx context.Context, holderName, branch string) (ledger.Account, error)
	GetAccount(ctx context.Context, accountNumber string) (ledger.Account, error)
	UpdateBranch(ctx context.Context, accountNumber, newBranch string) (ledger.Account, error)
	Deposit(ctx context.Context, accountNumber, amount string) (ledger.Account, error)
	Withdraw(ctx context.Context, accountNumber, amount string) (ledger.Account, error)
	DeleteAccount(ctx context.Context, accountNumber string) (int64, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
}

// Config wires the API.
type Config struct {
	Identity Identity
	Accounts Accounts
	Logger   zerolog.Logger
	// Policy defaults to middleware.DefaultPolicy.
	Policy *middleware.Policy
	// DocsEnabled serves the OpenAPI document and Swagger UI. When false
	// those paths answer 404 "Not Available".
	DocsEnabled bool
	// Registerer receives the HTTP collectors. Nil disables request metrics.
	Registerer prometheus.Registerer
	// TrustedProxies are addresses or CIDRs of reverse proxies whose
	// X-Forwarded-For header is honoured. Empty means the peer address is
	// always the client IP.
	TrustedProxies []string
}

// Server holds the routed handler.
type Server struct {
	identity Identity
	accounts Accounts
	log      zerolog.Logger
	handler  http.Handler
}

// NewServer builds the router and its middleware chain.
func NewServer(cfg Config) (*Server, error) {
	s := &Server{
		identity: cfg.Identity,
		accounts: cfg.Accounts,
		log:      cfg.Logger.With().Str("component", "http").Logger(),
	}

	policy := middleware.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	proxies, err := parseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	var metrics *httpMetrics
	if cfg.Registerer != nil {
		m, err := newHTTPMetrics(cfg.Registerer)
		if err != nil {
			return nil, err
		}
		metrics = m
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	registerDocs(r, cfg.DocsEnabled, s.log)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/signup", s.signUp).Methods(http.MethodPost)
	auth.HandleFunc("/token", s.token).Methods(http.MethodPost)

	acct := r.PathPrefix("/api/account").Subrouter()
	acct.HandleFunc("", s.listAccounts).Methods(http.MethodGet)
	acct.HandleFunc("", s.createAccount).Methods(http.MethodPost)
	acct.HandleFunc("", s.updateBranch).Methods(http.MethodPut)
	acct.HandleFunc("", s.deleteAccount).Methods(http.MethodDelete)
	acct.HandleFunc("/{accountNumber}", s.getAccount).Methods(http.MethodGet)

	tx := r.PathPrefix("/api/transaction").Subrouter()
	tx.HandleFunc("/deposit", s.deposit).Methods(http.MethodPut)
	tx.HandleFunc("/withdraw", s.withdraw).Methods(http.MethodPut)

	users := r.PathPrefix("/api/user").Subrouter()
	users.HandleFunc("", s.listUsers).Methods(http.MethodGet)
	users.HandleFunc("/{username}", s.deleteUser).Methods(http.MethodDelete)

	gate := middleware.Gate(cfg.Identity, middleware.GateConfig{
		Policy:   policy,
		OnReject: rejectHandler(s.log),
		Logger:   cfg.Logger,
	})
	r.Use(recordRoute)

	// The chain wraps the router rather than using r.Use so that unmatched
	// paths are still classified by the gate, logged and measured.
	chain := []func(http.Handler) http.Handler{
		recoverer(s.log),
		securityHeaders,
		requestContext(proxies),
		accessLog(s.log),
	}
	if metrics != nil {
		chain = append(chain, metrics.instrument)
	}
	chain = append(chain, gate)

	var h http.Handler = r
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	s.handler = h
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeErrorStatus(w, r, s.log, http.StatusNotFound, "No handler found for "+r.Method+" "+r.URL.Path, nil)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErrorStatus(w, r, s.log, http.StatusMethodNotAllowed, "Request method '"+r.Method+"' is not supported", nil)
}
