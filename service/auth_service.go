package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/ports"
)

// DefaultChallengeTTL is the fixed validity window of a challenge.
const DefaultChallengeTTL = 5 * time.Minute

// TokenMeta carries optional client metadata bound to a refresh token.
type TokenMeta struct {
	DeviceInfo *string
	IPAddress  *string
}

// ChallengeResponse is the result of creating a challenge.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	Nonce     string `json:"nonce"`
	ExpiresIn int    `json:"expires_in"`
}

// LoginResult is the session pair handed out after a verified challenge.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *core.User
}

// AuthService implements the challenge-response protocol: it fabricates
// signed challenges, verifies counter-signed submissions, and hands off to
// the tokenizer and refresh manager to mint the session pair.
type AuthService struct {
	challenges *ChallengeStore
	users      ports.UserStore
	refresh    *RefreshManager
	tokenizer  ports.Tokenizer
	events     ports.EventPublisher

	signer       *keypair.Full
	homeDomain   string
	challengeTTL time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewAuthService creates a new challenge protocol engine. The signer is the
// server's Stellar identity; its signature on every challenge lets clients
// authenticate the server before counter-signing.
func NewAuthService(
	challenges *ChallengeStore,
	users ports.UserStore,
	refresh *RefreshManager,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	signer *keypair.Full,
	homeDomain string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		challenges:   challenges,
		users:        users,
		refresh:      refresh,
		tokenizer:    tokenizer,
		events:       events,
		signer:       signer,
		homeDomain:   homeDomain,
		challengeTTL: DefaultChallengeTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateChallenge builds, signs and stores a challenge for the account.
// Any prior outstanding challenge for the same account is replaced.
func (s *AuthService) CreateChallenge(account string) (*ChallengeResponse, error) {
	if !strkey.IsValidEd25519PublicKey(account) {
		return nil, core.ErrInvalidKeyFormat
	}

	nonce, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	payload := core.ChallengePayload{
		Account:    account,
		Nonce:      nonce,
		HomeDomain: s.homeDomain,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(s.challengeTTL).Unix(),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	signature, err := s.signer.Sign(payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	envelope := core.ChallengeEnvelope{
		Payload: payload,
		Signatures: []core.ChallengeSignature{{
			PublicKey: s.signer.Address(),
			Signature: base64.StdEncoding.EncodeToString(signature),
		}},
	}

	envelopeBytes, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	s.challenges.Put(&core.Challenge{
		Account:   account,
		Nonce:     nonce,
		Payload:   payloadBytes,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	})

	return &ChallengeResponse{
		Challenge: base64.StdEncoding.EncodeToString(envelopeBytes),
		Nonce:     nonce,
		ExpiresIn: int(s.challengeTTL.Seconds()),
	}, nil
}

// VerifyChallenge checks a counter-signed challenge submission. The stored
// challenge is consumed on the first lookup, so every failure past that
// point burns it: a malformed or mis-signed submission cannot be retried.
func (s *AuthService) VerifyChallenge(ctx context.Context, account, signedPayload string, meta TokenMeta) (*LoginResult, error) {
	challenge, ok := s.challenges.Take(account)
	if !ok {
		return nil, core.ErrNoChallenge
	}

	if challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}

	envelopeBytes, err := base64.StdEncoding.DecodeString(signedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedPayload, err)
	}

	var envelope core.ChallengeEnvelope
	if err := json.Unmarshal(envelopeBytes, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedPayload, err)
	}

	verifier, err := keypair.ParseAddress(account)
	if err != nil {
		return nil, core.ErrInvalidKeyFormat
	}

	// Signatures must verify over the payload bytes recorded at issue time,
	// not whatever the client submitted. A signature over a superseded
	// challenge fails here.
	if !anySignatureValid(verifier, challenge.Payload, envelope.Signatures) {
		return nil, core.ErrSignatureMismatch
	}

	user, err := s.users.UpsertByPublicKey(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	accessToken, err := s.tokenizer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.refresh.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, user.ID.String(), account); err != nil {
			s.logger.Warn("failed to publish login event", zap.Error(err))
		}
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func anySignatureValid(verifier *keypair.FromAddress, payload []byte, signatures []core.ChallengeSignature) bool {
	for _, sig := range signatures {
		if sig.PublicKey != verifier.Address() {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(sig.Signature)
		if err != nil {
			continue
		}
		if verifier.Verify(payload, raw) == nil {
			return true
		}
	}
	return false
}
