package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the identity gateway's JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Type     string `json:"type"` // "access" or "refresh"
}

// Validator validates access tokens issued by the identity gateway.
type Validator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Verifier validates tokens against the gateway's RSA public key.
type Verifier struct {
	publicKey *rsa.PublicKey
}

// NewVerifier creates a Verifier from a PEM-encoded RSA public key.
func NewVerifier(publicKeyPEM []byte) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Verifier{publicKey: key}, nil
}

// ValidateToken validates a token and returns its claims.
// Refresh tokens are rejected: only access tokens authenticate requests.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	return validate(tokenString, v.publicKey)
}

// Manager issues and validates tokens with a locally generated key pair.
// It stands in for the identity gateway in development and tests.
type Manager struct {
	privateKey     *rsa.PrivateKey
	accessDuration time.Duration
	issuer         string
}

// NewManager creates a Manager with a fresh RSA key pair.
func NewManager(accessDuration time.Duration, issuer string) (*Manager, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	return &Manager{
		privateKey:     privateKey,
		accessDuration: accessDuration,
		issuer:         issuer,
	}, nil
}

// GenerateAccessToken creates a signed access token for the given user.
func (m *Manager) GenerateAccessToken(userID, email, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessDuration)),
		},
		UserID:   userID,
		Email:    email,
		Username: username,
		Type:     "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(m.privateKey)
}

// ValidateToken validates a token signed by this manager.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	return validate(tokenString, &m.privateKey.PublicKey)
}

func validate(tokenString string, publicKey *rsa.PublicKey) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != "access" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
