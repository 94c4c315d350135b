package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AudienceAccess tags access tokens so they cannot be replayed as another
// token kind.
const AudienceAccess = "session:access"

// KindKeypairAuth marks sessions established through challenge-response
// keypair authentication.
const KindKeypairAuth = "keypair-auth"

// accessClaims combines standard claims with session-specific ones.
type accessClaims struct {
	jwt.RegisteredClaims
	PublicKey string `json:"public_key,omitempty"`
	Kind      string `json:"kind"`
}
