package ports

import "github.com/mijinummi/Lumenpulse/core"

// AccessClaims is the claim shape carried by access tokens.
type AccessClaims struct {
	UserID    string
	PublicKey string
	Kind      string
}

// Tokenizer is the stateless signed-claims capability backing the session
// issuer. Implementations sign with the server's identity; no persistence.
type Tokenizer interface {
	// IssueAccessToken mints a signed access token for the user.
	IssueAccessToken(user *core.User) (string, error)

	// ParseAccessToken validates a token string and returns its claims.
	ParseAccessToken(token string) (*AccessClaims, error)
}
