package tokenizer

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/ports"
)

// DefaultAccessTTL is the lifetime of an access token.
const DefaultAccessTTL = 15 * time.Minute

// JWTTokenizer implements ports.Tokenizer with ES256-signed JWTs.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTTokenizer creates a tokenizer signing with the given ECDSA key.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) *JWTTokenizer {
	return &JWTTokenizer{
		signKey: signKey,
		ttl:     DefaultAccessTTL,
		now:     time.Now,
	}
}

// IssueAccessToken mints a signed access token for the user.
func (t *JWTTokenizer) IssueAccessToken(user *core.User) (string, error) {
	now := t.now()

	var publicKey string
	if user.StellarPublicKey != nil {
		publicKey = *user.StellarPublicKey
	}

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		PublicKey: publicKey,
		Kind:      KindKeypairAuth,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(t.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// ParseAccessToken validates a token string and returns its claims.
func (t *JWTTokenizer) ParseAccessToken(tokenStr string) (*ports.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &t.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAccess))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &ports.AccessClaims{
		UserID:    claims.Subject,
		PublicKey: claims.PublicKey,
		Kind:      claims.Kind,
	}, nil
}
