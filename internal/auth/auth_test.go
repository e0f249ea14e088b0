package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService("test-secret", time.Hour)
	s.cost = bcrypt.MinCost
	require.NoError(t, s.Register("alice@example.com", "pw", RoleUser))
	require.NoError(t, s.Register("admin@example.com", "root", RoleAdmin))
	return s
}

func TestGenerateAndValidateToken(t *testing.T) {
	s := newTestService(t)

	resp, err := s.GenerateToken(Credentials{Identity: "alice@example.com", Secret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, RoleUser, resp.Role)

	claims, err := s.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, RoleUser, claims.Role)
}

func TestGenerateTokenRejectsBadCredentials(t *testing.T) {
	s := newTestService(t)

	_, err := s.GenerateToken(Credentials{Identity: "alice@example.com", Secret: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.GenerateToken(Credentials{Identity: "nobody@example.com", Secret: "pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejects(t *testing.T) {
	s := newTestService(t)
	resp, err := s.GenerateToken(Credentials{Identity: "admin@example.com", Secret: "root"})
	require.NoError(t, err)

	other := NewService("other-secret", time.Hour)
	_, err = other.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong signing key")

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")
}

func TestRegisterValidates(t *testing.T) {
	s := NewService("secret", 0)
	s.cost = bcrypt.MinCost
	assert.Error(t, s.Register("", "pw", RoleUser))
	assert.Error(t, s.Register("bob@example.com", "pw", "superuser"))
	assert.Equal(t, 24*time.Hour, s.ttl)
}

func TestGenerateTokenHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestService(t)
	router := gin.New()
	router.POST("/token", NewGinHandlers(s).GenerateTokenHandler())

	tests := []struct {
		name string
		body string
		code int
	}{
		{"valid", `{"email":"alice@example.com","password":"pw"}`, http.StatusCreated},
		{"wrong password", `{"email":"alice@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"alice@example.com"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusCreated {
				var body struct {
					Data TokenResponse `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotEmpty(t, body.Data.Token)
			}
		})
	}
}
