package identity

import (
	"crypto/rsa"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// clerkClaims are the claims of a Clerk session token. Roles may come from a
// custom "roles" claim or from metadata.role.
type clerkClaims struct {
	AuthorizedParty string                 `json:"azp,omitempty"`
	Roles           []string               `json:"roles,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates Clerk session tokens against a PEM public key.
type Verifier struct {
	key    *rsa.PublicKey
	cfg    ClerkConfig
	parser *jwt.Parser
}

// NewVerifier parses the configured public key.
func NewVerifier(cfg ClerkConfig) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("identity: parse clerk public key: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Verifier{key: key, cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

func (v *Verifier) Authenticate(token string) (*Caller, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &clerkClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if len(v.cfg.AuthorizedParties) > 0 && claims.AuthorizedParty != "" &&
		!slices.Contains(v.cfg.AuthorizedParties, claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: unauthorized party %q", ErrInvalidToken, claims.AuthorizedParty)
	}

	roles := append([]string(nil), claims.Roles...)
	if role, ok := claims.Metadata["role"].(string); ok && role != "" && !slices.Contains(roles, role) {
		roles = append(roles, role)
	}

	return &Caller{
		UserID:   claims.Subject,
		Roles:    roles,
		Metadata: claims.Metadata,
		Source:   SourceClerk,
	}, nil
}
