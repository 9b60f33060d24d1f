package sqlstore_test

import (
	"context"
	"messenger/internal/config"
	"messenger/internal/messenger"
	"messenger/internal/messenger/messengertest"
	"messenger/internal/sqlstore"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStore(t *testing.T, path string) *sqlstore.Store {
	t.Helper()
	cfg := &config.Config{Backend: config.BackendSQLite, SqlitePath: path}
	s, err := sqlstore.Setup(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestContract(t *testing.T) {
	messengertest.Run(t, func(t *testing.T) messenger.Service {
		return newStore(t, filepath.Join(t.TempDir(), "messenger.db"))
	})
}

func TestChannelCounterSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messenger.db")
	ctx := context.Background()

	s := newStore(t, path)
	for _, name := range []string{"one", "two", "three"} {
		_, err := s.CreateChannel(ctx, name)
		require.NoError(t, err)
	}
	require.NoError(t, s.BanChannel(ctx, "three"))
	require.NoError(t, s.Close())

	reopened := newStore(t, path)
	c, err := reopened.CreateChannel(ctx, "four")
	require.NoError(t, err)
	require.Equal(t, 4, c.ID)
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messenger.db")
	ctx := context.Background()

	s := newStore(t, path)
	_, err := s.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	c, err := s.CreateChannel(ctx, "Town square")
	require.NoError(t, err)
	require.NoError(t, s.JoinChannel(ctx, c.ID, "Alice"))
	_, err = s.PostMessage(ctx, c.ID, "Alice", "Hi 👋")
	require.NoError(t, err)

	wantChannels, err := s.Channels(ctx)
	require.NoError(t, err)
	wantMessages, err := s.AllMessages(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := newStore(t, path)
	gotChannels, err := reopened.Channels(ctx)
	require.NoError(t, err)
	gotMessages, err := reopened.AllMessages(ctx)
	require.NoError(t, err)

	require.Equal(t, wantChannels, gotChannels)
	require.Equal(t, wantMessages, gotMessages)
}

func TestSetupRejectsOtherBackends(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendJSON}
	_, err := sqlstore.Setup(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
}
