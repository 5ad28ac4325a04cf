package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signClerk(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestVerifier_Authenticate(t *testing.T) {
	key, pub := newKeyPair(t)
	other, _ := newKeyPair(t)
	v, err := NewVerifier(ClerkConfig{
		PublicKeyPEM:      pub,
		Issuer:            "https://clerk.example.com",
		AuthorizedParties: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)

	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "user_123",
			"iss": "https://clerk.example.com",
			"azp": "http://localhost:5173",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("valid", func(t *testing.T) {
		c, err := v.Authenticate(signClerk(t, key, valid()))
		require.NoError(t, err)
		assert.Equal(t, "user_123", c.UserID)
		assert.Equal(t, SourceClerk, c.Source)
	})

	t.Run("roles from claim and metadata", func(t *testing.T) {
		claims := valid()
		claims["roles"] = []string{"farmer"}
		claims["metadata"] = map[string]interface{}{"role": "admin"}
		c, err := v.Authenticate(signClerk(t, key, claims))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"farmer", "admin"}, c.Roles)
	})

	tests := []struct {
		name   string
		token  func() string
		expect error
	}{
		{"empty", func() string { return "" }, ErrMissingToken},
		{"garbage", func() string { return "not.a.token" }, ErrInvalidToken},
		{"wrong key", func() string { return signClerk(t, other, valid()) }, ErrInvalidToken},
		{"expired", func() string {
			c := valid()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signClerk(t, key, c)
		}, ErrInvalidToken},
		{"no expiry", func() string {
			c := valid()
			delete(c, "exp")
			return signClerk(t, key, c)
		}, ErrInvalidToken},
		{"wrong issuer", func() string {
			c := valid()
			c["iss"] = "https://evil.example.com"
			return signClerk(t, key, c)
		}, ErrInvalidToken},
		{"unauthorized party", func() string {
			c := valid()
			c["azp"] = "https://evil.example.com"
			return signClerk(t, key, c)
		}, ErrInvalidToken},
		{"missing subject", func() string {
			c := valid()
			delete(c, "sub")
			return signClerk(t, key, c)
		}, ErrInvalidToken},
		{"hmac token", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, valid()).SignedString([]byte("secret"))
			require.NoError(t, err)
			return s
		}, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Authenticate(tt.token())
			assert.ErrorIs(t, err, tt.expect)
		})
	}
}

func TestNewVerifier_BadKey(t *testing.T) {
	_, err := NewVerifier(ClerkConfig{PublicKeyPEM: "not a pem"})
	assert.Error(t, err)
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss, err := NewIssuer(LegacyConfig{Secret: "s3cret", TokenTTL: 7 * 24 * time.Hour})
	require.NoError(t, err)

	token, err := iss.Issue("abc", "jane@example.com")
	require.NoError(t, err)

	c, err := iss.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", c.UserID)
	assert.Equal(t, "jane@example.com", c.Email)
	assert.Equal(t, SourceLegacy, c.Source)
}

func TestIssuer_Expiry(t *testing.T) {
	iss, err := NewIssuer(LegacyConfig{Secret: "s3cret", TokenTTL: time.Hour})
	require.NoError(t, err)

	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return issued }
	token, err := iss.Issue("abc", "")
	require.NoError(t, err)

	iss.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = iss.Authenticate(token)
	require.NoError(t, err)

	iss.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = iss.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongSecret(t *testing.T) {
	a, _ := NewIssuer(LegacyConfig{Secret: "a", TokenTTL: time.Hour})
	b, _ := NewIssuer(LegacyConfig{Secret: "b", TokenTTL: time.Hour})
	token, err := a.Issue("abc", "")
	require.NoError(t, err)

	_, err = b.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_MissingSecret(t *testing.T) {
	_, err := NewIssuer(LegacyConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestPolicy(t *testing.T) {
	p, err := NewPolicy(DefaultAdminRule)
	require.NoError(t, err)

	ok, err := p.Allow(&Caller{UserID: "u", Roles: []string{"admin"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Allow(&Caller{UserID: "u", Roles: []string{"farmer"}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Allow(&Caller{UserID: "u"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Allow(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicy_Metadata(t *testing.T) {
	p, err := NewPolicy(`sub == "root" || ("tier" in metadata && metadata.tier == "staff")`)
	require.NoError(t, err)

	ok, err := p.Allow(&Caller{UserID: "root"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Allow(&Caller{UserID: "u", Metadata: map[string]interface{}{"tier": "staff"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Allow(&Caller{UserID: "u", Metadata: map[string]interface{}{"tier": "free"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPolicy_Invalid(t *testing.T) {
	_, err := NewPolicy(`roles +`)
	assert.Error(t, err)

	_, err = NewPolicy(`sub`)
	assert.Error(t, err, "non-bool rule")
}

type stubAuth struct {
	caller *Caller
	err    error
}

func (s stubAuth) Authenticate(token string) (*Caller, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return s.caller, s.err
}

func TestMiddleware(t *testing.T) {
	var got *Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("no header", func(t *testing.T) {
		got = nil
		rec := httptest.NewRecorder()
		Middleware(stubAuth{caller: &Caller{UserID: "u"}})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "No token provided")
		assert.Nil(t, got)
	})

	t.Run("invalid", func(t *testing.T) {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		Middleware(stubAuth{err: ErrInvalidToken})(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid token")
		assert.Nil(t, got)
	})

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		Middleware(stubAuth{caller: &Caller{UserID: "u"}})(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "u", got.UserID)
	})
}

func TestMiddlewareOptional(t *testing.T) {
	var id string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = UserIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	MiddlewareOptional(stubAuth{err: ErrInvalidToken})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, id)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	MiddlewareOptional(stubAuth{caller: &Caller{UserID: "u"}})(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "u", id)
}

func TestAdminOnly(t *testing.T) {
	p, err := NewPolicy(DefaultAdminRule)
	require.NoError(t, err)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AdminOnly(p)(next)

	tests := []struct {
		name   string
		caller *Caller
		status int
	}{
		{"unauthenticated", nil, http.StatusUnauthorized},
		{"farmer", &Caller{UserID: "u", Roles: []string{"farmer"}}, http.StatusForbidden},
		{"admin", &Caller{UserID: "u", Roles: []string{"admin"}}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.caller != nil {
				req = req.WithContext(WithCaller(req.Context(), tt.caller))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", BearerToken(req))
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 7*24*time.Hour, cfg.Legacy.TokenTTL)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSecret)

	t.Setenv("JWT_SECRET", "abc")
	t.Setenv("CLERK_PEM_PUBLIC_KEY", `line1\nline2`)
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "abc", cfg.Legacy.Secret)
	assert.Equal(t, "line1\nline2", cfg.Clerk.PublicKeyPEM)
	assert.NoError(t, cfg.Validate())

	cfg.Legacy.Enabled = false
	cfg.Legacy.Secret = ""
	assert.NoError(t, cfg.Validate())

	cfg.AdminRule = "roles +"
	assert.Error(t, cfg.Validate())

	var empty Config
	empty.ApplyDefaults()
	assert.Equal(t, DefaultAdminRule, empty.AdminRule)
}

func TestReject(t *testing.T) {
	_, err := Reject{}.Authenticate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = Reject{}.Authenticate("anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
