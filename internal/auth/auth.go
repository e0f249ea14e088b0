package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ksred/summit-api/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Gin context keys set by the JWT middleware.
const (
	IdentityKey = "identity"
	RoleKey     = "role"
)

// Credentials represents a login request
type Credentials struct {
	Identity string `json:"email" binding:"required"`
	Secret   string `json:"password" binding:"required"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Expiration time.Time `json:"expiration"`
	Role       string    `json:"role"`
}

// Claims carries the identity in the subject and its role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type credential struct {
	hash []byte
	role string
}

// Service issues and validates tokens for registered identities.
type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	cost      int
	now       func() time.Time

	mu          sync.RWMutex
	credentials map[string]credential
}

// NewService creates a new authentication service with the given JWT secret and token lifetime
func NewService(jwtSecret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		jwtSecret:   []byte(jwtSecret),
		ttl:         ttl,
		cost:        bcrypt.DefaultCost,
		now:         time.Now,
		credentials: make(map[string]credential),
	}
}

// Register stores a bcrypt hash of secret for identity with the given role.
// Registering an identity again replaces its secret and role.
func (s *Service) Register(identity, secret, role string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" || secret == "" {
		return errors.New("identity and secret are required")
	}
	if role != RoleUser && role != RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}

	s.mu.Lock()
	s.credentials[identity] = credential{hash: hash, role: role}
	s.mu.Unlock()
	return nil
}

// GenerateToken generates a signed token for valid credentials
func (s *Service) GenerateToken(creds Credentials) (*TokenResponse, error) {
	s.mu.RLock()
	cred, ok := s.credentials[creds.Identity]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(cred.hash, []byte(creds.Secret)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expiration := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creds.Identity,
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Role: cred.role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Expiration: expiration,
		Role:       cred.role,
	}, nil
}

// ValidateToken verifies signature, expiry and required claims and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleUser && claims.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role", ErrInvalidToken)
	}
	return claims, nil
}

// GetIdentity returns the authenticated identity stored by the JWT middleware
func GetIdentity(c *gin.Context) string {
	return c.GetString(IdentityKey)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(RoleKey) == RoleAdmin
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateTokenHandler handles POST requests to generate JWT tokens
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.GenerateToken(creds)
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}
