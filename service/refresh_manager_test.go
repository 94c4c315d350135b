package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/store/memory"
	"github.com/mijinummi/Lumenpulse/core"
)

func newRefreshFixture(t *testing.T) (*RefreshManager, *memory.Store, *core.User) {
	t.Helper()

	store := memory.NewStore()
	key := "GTESTACCOUNT"
	user := &core.User{
		ID:               uuid.New(),
		StellarPublicKey: &key,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	store.SeedUser(user)

	mgr := NewRefreshManager(store.RefreshTokens(), store.Users(), staticTokenizer{}, zap.NewNop())
	return mgr, store, user
}

func TestRefreshIssueAndValidate(t *testing.T) {
	mgr, _, user := newRefreshFixture(t)
	ctx := context.Background()

	raw, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	owner, record, err := mgr.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.ID)
	assert.Equal(t, user.ID, record.UserID)
	assert.NotEqual(t, raw, record.TokenHash, "the raw secret must never be persisted")
}

func TestRefreshValidateUnknownToken(t *testing.T) {
	mgr, _, _ := newRefreshFixture(t)

	_, _, err := mgr.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestRefreshRotateInvalidatesOld(t *testing.T) {
	mgr, _, user := newRefreshFixture(t)
	ctx := context.Background()

	old, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)

	result, err := mgr.Rotate(ctx, old, TokenMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEqual(t, old, result.RefreshToken)

	_, _, err = mgr.Validate(ctx, old)
	assert.ErrorIs(t, err, core.ErrInvalidToken, "the rotated-out token must be dead")

	_, _, err = mgr.Validate(ctx, result.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRotateTwiceFails(t *testing.T) {
	mgr, _, user := newRefreshFixture(t)
	ctx := context.Background()

	raw, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)

	_, err = mgr.Rotate(ctx, raw, TokenMeta{})
	require.NoError(t, err)

	_, err = mgr.Rotate(ctx, raw, TokenMeta{})
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestRefreshValidateExpiredRevokes(t *testing.T) {
	mgr, _, user := newRefreshFixture(t)
	ctx := context.Background()

	raw, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)

	mgr.now = func() time.Time { return time.Now().Add(DefaultRefreshTTL + time.Hour) }

	_, _, err = mgr.Validate(ctx, raw)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	// Expiry revoked the record, so even at the original clock the token
	// no longer resolves.
	mgr.now = time.Now
	_, _, err = mgr.Validate(ctx, raw)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestRefreshRevokeIsSilent(t *testing.T) {
	mgr, _, user := newRefreshFixture(t)
	ctx := context.Background()

	raw, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(ctx, raw))
	require.NoError(t, mgr.Revoke(ctx, raw), "revoking twice must not fail")
	require.NoError(t, mgr.Revoke(ctx, "never-issued"), "revoking an unknown token must not fail")

	_, _, err = mgr.Validate(ctx, raw)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestRefreshRevokeAll(t *testing.T) {
	mgr, _, user := newRefreshFixture(t)
	ctx := context.Background()

	first, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)
	second, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)

	require.NoError(t, mgr.RevokeAll(ctx, user.ID))

	_, _, err = mgr.Validate(ctx, first)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
	_, _, err = mgr.Validate(ctx, second)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestRefreshValidateUserGone(t *testing.T) {
	mgr, store, user := newRefreshFixture(t)
	ctx := context.Background()

	raw, err := mgr.Issue(ctx, user.ID, TokenMeta{})
	require.NoError(t, err)

	store.DeleteUser(user.ID)

	_, _, err = mgr.Validate(ctx, raw)
	assert.ErrorIs(t, err, core.ErrUserGone)
}
