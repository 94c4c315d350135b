package core

import "time"

// Challenge represents an outstanding authentication challenge for a
// Stellar account. At most one challenge is live per account at a time.
type Challenge struct {
	Account   string    // Stellar account ID (G...) the challenge was issued for
	Nonce     string    // Hex-encoded 32-byte random nonce
	Payload   []byte    // Canonical payload bytes the client must sign
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengePayload is the signable body embedded in a challenge envelope.
// The field order is fixed so json.Marshal produces canonical bytes.
type ChallengePayload struct {
	Account    string `json:"account"`
	Nonce      string `json:"nonce"`
	HomeDomain string `json:"home_domain"`
	IssuedAt   int64  `json:"issued_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

// ChallengeSignature is a single detached signature over the payload bytes.
type ChallengeSignature struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"` // base64
}

// ChallengeEnvelope is the wire form of a challenge: the payload plus the
// signatures collected so far. The server attaches its own signature at
// issue time; the client appends one before submitting it back.
type ChallengeEnvelope struct {
	Payload    ChallengePayload     `json:"payload"`
	Signatures []ChallengeSignature `json:"signatures"`
}
