package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/store/memory"
	"github.com/mijinummi/Lumenpulse/core"
	"github.com/mijinummi/Lumenpulse/ports"
)

// staticTokenizer mints predictable tokens so tests can assert on them
// without parsing JWTs.
type staticTokenizer struct{}

func (staticTokenizer) IssueAccessToken(user *core.User) (string, error) {
	return "access-" + user.ID.String(), nil
}

func (staticTokenizer) ParseAccessToken(token string) (*ports.AccessClaims, error) {
	return nil, core.ErrInvalidToken
}

type recordingPublisher struct {
	logins  int
	logouts int
	resets  int
}

func (p *recordingPublisher) PublishLogin(ctx context.Context, userID, publicKey string) error {
	p.logins++
	return nil
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, userID string) error {
	p.logouts++
	return nil
}

func (p *recordingPublisher) PublishPasswordReset(ctx context.Context, userID string) error {
	p.resets++
	return nil
}

type authFixture struct {
	svc    *AuthService
	store  *memory.Store
	events *recordingPublisher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := memory.NewStore()
	challenges := NewChallengeStore(DefaultSweepInterval, zap.NewNop())
	refresh := NewRefreshManager(store.RefreshTokens(), store.Users(), staticTokenizer{}, zap.NewNop())
	events := &recordingPublisher{}

	svc := NewAuthService(
		challenges, store.Users(), refresh, staticTokenizer{}, events,
		keypair.MustRandom(), "lumenpulse.test", zap.NewNop(),
	)
	return &authFixture{svc: svc, store: store, events: events}
}

// counterSign decodes a challenge, appends the client's signature over the
// payload bytes and re-encodes the envelope.
func counterSign(t *testing.T, kp *keypair.Full, challenge string) string {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(challenge)
	require.NoError(t, err)

	var envelope core.ChallengeEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))

	payloadBytes, err := json.Marshal(envelope.Payload)
	require.NoError(t, err)

	sig, err := kp.Sign(payloadBytes)
	require.NoError(t, err)

	envelope.Signatures = append(envelope.Signatures, core.ChallengeSignature{
		PublicKey: kp.Address(),
		Signature: base64.StdEncoding.EncodeToString(sig),
	})

	out, err := json.Marshal(envelope)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(out)
}

func TestCreateChallengeRejectsInvalidKey(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.svc.CreateChallenge("not-a-stellar-key")
	assert.ErrorIs(t, err, core.ErrInvalidKeyFormat)

	_, err = fx.svc.CreateChallenge("SDCXNQ4NF2SPGEYS3W25GQ5OUXRNPGYQAFZLHVXH6YKDGJF2OFYQHFPJ")
	assert.ErrorIs(t, err, core.ErrInvalidKeyFormat, "secret seeds are not account IDs")
}

func TestCreateChallengeCarriesServerSignature(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()

	resp, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Nonce)
	assert.Equal(t, int(DefaultChallengeTTL.Seconds()), resp.ExpiresIn)

	raw, err := base64.StdEncoding.DecodeString(resp.Challenge)
	require.NoError(t, err)

	var envelope core.ChallengeEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))

	assert.Equal(t, kp.Address(), envelope.Payload.Account)
	assert.Equal(t, "lumenpulse.test", envelope.Payload.HomeDomain)
	assert.Equal(t, resp.Nonce, envelope.Payload.Nonce)

	require.Len(t, envelope.Signatures, 1)
	assert.Equal(t, fx.svc.signer.Address(), envelope.Signatures[0].PublicKey)

	payloadBytes, err := json.Marshal(envelope.Payload)
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(envelope.Signatures[0].Signature)
	require.NoError(t, err)
	assert.NoError(t, fx.svc.signer.Verify(payloadBytes, sig))
}

func TestVerifyChallenge(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()
	ctx := context.Background()

	resp, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)

	result, err := fx.svc.VerifyChallenge(ctx, kp.Address(), counterSign(t, kp, resp.Challenge), TokenMeta{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	require.NotNil(t, result.User.StellarPublicKey)
	assert.Equal(t, kp.Address(), *result.User.StellarPublicKey)
	assert.Equal(t, 1, fx.events.logins)

	user, err := fx.store.Users().FindByID(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), *user.StellarPublicKey)
}

func TestVerifyChallengeIsSingleUse(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()
	ctx := context.Background()

	resp, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)
	signed := counterSign(t, kp, resp.Challenge)

	_, err = fx.svc.VerifyChallenge(ctx, kp.Address(), signed, TokenMeta{})
	require.NoError(t, err)

	_, err = fx.svc.VerifyChallenge(ctx, kp.Address(), signed, TokenMeta{})
	assert.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestVerifyChallengeWithoutChallenge(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()

	_, err := fx.svc.VerifyChallenge(context.Background(), kp.Address(), "irrelevant", TokenMeta{})
	assert.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestVerifyChallengeExpired(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()

	resp, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)
	signed := counterSign(t, kp, resp.Challenge)

	fx.svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	_, err = fx.svc.VerifyChallenge(context.Background(), kp.Address(), signed, TokenMeta{})
	assert.ErrorIs(t, err, core.ErrChallengeExpired)

	// The expired challenge is gone, not retryable.
	_, err = fx.svc.VerifyChallenge(context.Background(), kp.Address(), signed, TokenMeta{})
	assert.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestVerifyChallengeMalformedPayloadBurns(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()
	ctx := context.Background()

	resp, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)
	signed := counterSign(t, kp, resp.Challenge)

	_, err = fx.svc.VerifyChallenge(ctx, kp.Address(), "%%%not-base64%%%", TokenMeta{})
	assert.ErrorIs(t, err, core.ErrMalformedPayload)

	// The malformed submission consumed the challenge.
	_, err = fx.svc.VerifyChallenge(ctx, kp.Address(), signed, TokenMeta{})
	assert.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestVerifyChallengeWrongSignerBurns(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()
	attacker := keypair.MustRandom()
	ctx := context.Background()

	resp, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)

	// Signature produced by the wrong key but claiming the account's.
	forged := counterSign(t, attacker, resp.Challenge)
	var envelope core.ChallengeEnvelope
	raw, err := base64.StdEncoding.DecodeString(forged)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &envelope))
	envelope.Signatures[len(envelope.Signatures)-1].PublicKey = kp.Address()
	raw, err = json.Marshal(envelope)
	require.NoError(t, err)

	_, err = fx.svc.VerifyChallenge(ctx, kp.Address(), base64.StdEncoding.EncodeToString(raw), TokenMeta{})
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)

	// Even a correct signature cannot follow a failed attempt.
	_, err = fx.svc.VerifyChallenge(ctx, kp.Address(), counterSign(t, kp, resp.Challenge), TokenMeta{})
	assert.ErrorIs(t, err, core.ErrNoChallenge)
}

func TestVerifyChallengeRejectsSupersededPayload(t *testing.T) {
	fx := newAuthFixture(t)
	kp := keypair.MustRandom()

	first, err := fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)
	signedFirst := counterSign(t, kp, first.Challenge)

	// A second challenge replaces the first before it is submitted.
	_, err = fx.svc.CreateChallenge(kp.Address())
	require.NoError(t, err)

	_, err = fx.svc.VerifyChallenge(context.Background(), kp.Address(), signedFirst, TokenMeta{})
	assert.ErrorIs(t, err, core.ErrSignatureMismatch)
}
