// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for reconnect tokens that fail verification.
var ErrInvalidToken = errors.New("invalid reconnect token")

// privateKey and publicKey sign and verify reconnect tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a reconnect token stays valid (0 => never expires).
	tokenTTL time.Duration
)

// Init generates a fresh ed25519 key pair. Tokens issued before a restart stop
// verifying, which is fine since match state does not survive a restart either.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey, tokenTTL = pub, priv, ttl
	return nil
}

// InitFromPath loads a raw ed25519 key pair from disk.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("ed25519 key files have the wrong size")
	}
	privateKey, publicKey, tokenTTL = priv, pub, ttl
	return nil
}

// CreatePlayerToken signs a token whose subject is the stable player id. Clients
// present it when rejoining to reclaim their seat.
func CreatePlayerToken(playerID uuid.UUID) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth is not initialized")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  playerID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
}

// AuthenticatePlayerToken verifies a token and returns the player id it was issued for.
func AuthenticatePlayerToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject: %v", ErrInvalidToken, err)
	}
	return id, nil
}
