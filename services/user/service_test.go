package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"readingbot/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &User{})
	node := testutil.NewNode(t)
	return NewService(ServiceParams{DB: db, Node: node})
}

func TestRegisterIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, Profile{TelegramID: 1001, FirstName: "Ivan", Username: "ivan"})
	require.NoError(t, err)

	second, err := svc.Register(ctx, Profile{TelegramID: 1001, FirstName: "Ivan", Username: "ivan_new"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "ivan_new", second.Username)
}

func TestRegisterRequiresTelegramID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), Profile{FirstName: "Nobody"})
	require.Error(t, err)
}

func TestRecipient(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, Profile{TelegramID: 42, FirstName: "Anna"})
	require.NoError(t, err)

	chat, err := svc.Recipient(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "42", chat)

	_, err = svc.Recipient(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
