package jwt

import (
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the asymmetric algorithm used to sign tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over an ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodRS256 signs with RSASSA-PKCS1-v1_5 using SHA-256.
	MethodRS256 SigningMethod = "rs256"
)

// DefaultTTL is the fixed token lifetime.
const DefaultTTL = 36000 * time.Second

var (
	// ErrTokenInvalid is returned for malformed, tampered or wrongly signed tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once the verification instant reaches the exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrSigningKeyMissing is returned by Issue on a verify-only manager.
	ErrSigningKeyMissing = errors.New("signing key missing")
)

// Config holds the key material and claim settings of a Manager.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is optional. Without it the manager can only verify.
	PrivateKey []byte
	// PublicKey is derived from PrivateKey when empty.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
	KeyID     string
}

// Claims is the payload carried by an access token.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Authorities splits the scope claim back into its authority list.
func (c *Claims) Authorities() []string {
	if c == nil {
		return nil
	}
	return strings.Fields(c.Scope)
}

// HasAuthority reports whether the scope claim contains authority.
func (c *Claims) HasAuthority(authority string) bool {
	for _, a := range c.Authorities() {
		if a == authority {
			return true
		}
	}
	return false
}

// Manager issues and verifies tokens. It is safe for concurrent use.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	now       func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithTimeFunc replaces the clock used for issued-at stamping and expiry checks.
func WithTimeFunc(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager validates cfg and parses its keys once.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	switch cfg.SigningMethod {
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		err = m.loadEdKeys()
	case MethodRS256:
		m.method = jwt.SigningMethodRS256
		err = m.loadRSAKeys()
	default:
		return nil, errors.New("unsupported signing method")
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadEdKeys() error {
	if len(m.config.PrivateKey) > 0 {
		priv, err := parseEdPrivateKey(m.config.PrivateKey)
		if err != nil {
			return err
		}
		m.signKey = priv
		m.verifyKey = priv.Public().(ed25519.PublicKey)
	}
	if len(m.config.PublicKey) > 0 {
		pub, err := parseEdPublicKey(m.config.PublicKey)
		if err != nil {
			return err
		}
		if derived, ok := m.verifyKey.(ed25519.PublicKey); ok && !derived.Equal(pub) {
			return errors.New("ed25519 public key does not match private key")
		}
		m.verifyKey = pub
	}
	if m.verifyKey == nil {
		return errors.New("ed25519 requires a private or public key")
	}
	return nil
}

func (m *Manager) loadRSAKeys() error {
	if len(m.config.PrivateKey) > 0 {
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(m.config.PrivateKey)
		if err != nil {
			return errors.New("invalid rsa private key")
		}
		if priv.N.BitLen() < 2048 {
			return errors.New("rsa private key must be at least 2048 bits")
		}
		m.signKey = priv
		m.verifyKey = &priv.PublicKey
	}
	if len(m.config.PublicKey) > 0 {
		pub, err := jwt.ParseRSAPublicKeyFromPEM(m.config.PublicKey)
		if err != nil {
			return errors.New("invalid rsa public key")
		}
		if derived, ok := m.verifyKey.(*rsa.PublicKey); ok && !derived.Equal(pub) {
			return errors.New("rsa public key does not match private key")
		}
		m.verifyKey = pub
	}
	if m.verifyKey == nil {
		return errors.New("rs256 requires a private or public key")
	}
	return nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// CanIssue reports whether the manager holds a private key.
func (m *Manager) CanIssue() bool {
	return m != nil && m.signKey != nil
}

// Issue mints a token for subject. The scope claim is authorities joined by
// single spaces, iat is the current second and exp is iat plus the TTL.
func (m *Manager) Issue(subject string, authorities []string) (string, *Claims, error) {
	if m.signKey == nil {
		return "", nil, ErrSigningKeyMissing
	}
	if strings.TrimSpace(subject) == "" {
		return "", nil, errors.New("empty subject")
	}

	issuedAt := m.now().UTC().Truncate(time.Second)
	claims := &Claims{
		Scope: strings.Join(authorities, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.config.TTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	signed, err := token.SignedString(m.signKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and time bounds of tokenStr. Failures are
// reported as ErrTokenExpired or ErrTokenInvalid.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
