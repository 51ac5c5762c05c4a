package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/mocks"
	authmocks "github.com/target/aquaops-console/internal/mocks/auth"
	"github.com/target/aquaops-console/internal/ports"
	"github.com/target/aquaops-console/internal/testutil"
	"go.uber.org/mock/gomock"
)

func newMockedAuthService(t *testing.T, gw *mocks.MockGateway, sink ports.AuditSink) (*AuthService, *TokenStore) {
	t.Helper()
	kv := authmocks.NewMemoryKV()
	clock := NewFixedTimeProvider(testutil.TestTime())
	tokens := NewTokenStore(TokenStoreOptions{Store: kv, Config: TokenStoreConfig{Clock: clock}})
	svc := NewAuthService(AuthServiceOptions{
		Gateway: gw,
		Session: AuthSessionDeps{
			Tokens: tokens,
			Users:  NewUserCache(kv, nil),
			State:  NewSessionHolder(),
		},
		Config: AuthServiceConfig{
			Audit:     NewAuditLogger(AuditLoggerOptions{Sink: sink}),
			Clock:     clock,
			afterFunc: (&fakeTimers{}).after,
		},
	})
	t.Cleanup(svc.Close)
	return svc, tokens
}

func TestAuthService_LoginAndLogoutCallSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	sink := mocks.NewMockAuditSink(ctrl)
	svc, _ := newMockedAuthService(t, gw, sink)
	ctx := context.Background()

	creds := domainauth.Credentials{Username: "operator", Password: "secret"}
	fake := authmocks.NewFakeGateway()

	gw.EXPECT().Login(gomock.Any(), creds).Return(fake.Success(), nil)
	gw.EXPECT().Logout(gomock.Any(), "refresh-1").Return(errors.New("gateway down"))
	gw.EXPECT().MessagingLogout(gomock.Any()).Return(nil)

	var actions []string
	sink.EXPECT().Audit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry domainauth.AuditEntry) error {
			assert.Equal(t, AuditResourceAuth, entry.Resource)
			assert.Equal(t, "mock-user-1", entry.UserID)
			actions = append(actions, entry.Action)
			return nil
		}).Times(2)

	require.NoError(t, svc.Login(ctx, creds))
	svc.Logout(ctx)
	svc.Close()

	assert.ElementsMatch(t, []string{AuditActionLogin, AuditActionLogout}, actions)
	assert.False(t, svc.State().IsAuthenticated)
}

func TestAuthService_RefreshRejectedEnvelopeLogsOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	svc, tokens := newMockedAuthService(t, gw, nil)
	ctx := context.Background()

	require.NoError(t, tokens.SetTokens(ctx, testutil.NewToken().Build(), "refresh-stale", 600))

	gw.EXPECT().Refresh(gomock.Any(), "refresh-stale").
		Return(&domainauth.AuthResponse{Success: false, Message: "Refresh token expired"}, nil)
	gw.EXPECT().Logout(gomock.Any(), "refresh-stale").Return(nil)
	gw.EXPECT().MessagingLogout(gomock.Any()).Return(nil)

	err := svc.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, "Refresh token expired", svc.HandleAuthError(err))
	assert.Empty(t, tokens.AccessToken(ctx))
	svc.Close()
}

func TestTokenStore_ClearTokensDeletesAllThreeKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKeyValueStore(ctrl)
	store := NewTokenStore(TokenStoreOptions{Store: kv})

	kv.EXPECT().
		Delete(gomock.Any(), domainauth.KeyAccessToken, domainauth.KeyRefreshToken, domainauth.KeyTokenExpiry).
		Return(nil)

	require.NoError(t, store.ClearTokens(context.Background()))
}

func TestTokenStore_SetTokensStopsAtFirstWriteError(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := mocks.NewMockKeyValueStore(ctrl)
	store := NewTokenStore(TokenStoreOptions{Store: kv})
	boom := errors.New("disk full")

	gomock.InOrder(
		kv.EXPECT().Set(gomock.Any(), domainauth.KeyAccessToken, "a.b.c").Return(nil),
		kv.EXPECT().Set(gomock.Any(), domainauth.KeyRefreshToken, "r-1").Return(boom),
	)

	err := store.SetTokens(context.Background(), "a.b.c", "r-1", 3600)
	require.ErrorIs(t, err, boom)
}
