package store_test

import (
	"context"
	"encoding/json"
	"messenger/internal/messenger"
	"messenger/internal/messenger/messengertest"
	"messenger/internal/models"
	"messenger/internal/store"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStore(t *testing.T, content string) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	s, err := store.Open(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return s, path
}

func TestContract(t *testing.T) {
	messengertest.Run(t, func(t *testing.T) messenger.Service {
		s, _ := newStore(t, "")
		return s
	})
}

func TestLoadMissingPath(t *testing.T) {
	s := store.New("", zaptest.NewLogger(t).Sugar())
	require.ErrorIs(t, s.Load(), messenger.ErrMissingPath)
	require.False(t, messenger.IsReport(s.Load()))
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s, path := newStore(t, "")
	ctx := context.Background()

	users, err := s.Users(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadDocument(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantUsers    int
		wantChannels int
		wantMessages int
	}{
		{name: "empty object", content: `{}`},
		{name: "whitespace only", content: "  \n"},
		{name: "users only", content: `{"users": [{"id": 1, "name": "Alice"}]}`, wantUsers: 1},
		{
			name: "full document",
			content: `{
				"users": [{"id": 1, "name": "Alice"}, {"id": 2, "name": "Bob"}],
				"channels": [{"id": 1, "name": "Town square", "members": [{"id": 1, "name": "Alice"}]}],
				"messages": [{"sender_id": 1, "channel": 1, "content": "Hi"}]
			}`,
			wantUsers:    2,
			wantChannels: 1,
			wantMessages: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newStore(t, tc.content)
			ctx := context.Background()

			users, err := s.Users(ctx)
			require.NoError(t, err)
			assert.Len(t, users, tc.wantUsers)

			channels, err := s.Channels(ctx)
			require.NoError(t, err)
			assert.Len(t, channels, tc.wantChannels)

			messages, err := s.AllMessages(ctx)
			require.NoError(t, err)
			assert.Len(t, messages, tc.wantMessages)
		})
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [`), 0o644))

	_, err := store.Open(path, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
	require.False(t, messenger.IsReport(err))
}

func TestLoadDropsUnknownMembers(t *testing.T) {
	s, _ := newStore(t, `{
		"users": [{"id": 1, "name": "Alice"}],
		"channels": [{"id": 1, "name": "Town square", "members": [{"id": 1, "name": "Alice"}, {"id": 7, "name": "Ghost"}]}]
	}`)

	members, err := s.ChannelMembers(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []models.User{{ID: 1, Name: "Alice"}}, members)
}

func TestExampleScenario(t *testing.T) {
	s, path := newStore(t, `{
		"users": [{"id": 1, "name": "Alice"}, {"id": 2, "name": "Bob"}],
		"channels": [{"id": 1, "name": "Town square", "members": [{"id": 1, "name": "Alice"}]}],
		"messages": []
	}`)
	ctx := context.Background()

	_, err := s.PostMessage(ctx, 1, "Alice", "hi")
	require.NoError(t, err)

	_, err = s.PostMessage(ctx, 1, "Bob", "yo")
	require.ErrorIs(t, err, messenger.ErrNotMember)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw struct {
		Messages []map[string]any `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, []map[string]any{{"sender_id": float64(1), "channel": float64(1), "content": "hi"}}, raw.Messages)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, path := newStore(t, "")
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := s.CreateUser(ctx, name)
		require.NoError(t, err)
	}
	general, err := s.CreateChannel(ctx, "general")
	require.NoError(t, err)
	_, err = s.CreateChannel(ctx, "random")
	require.NoError(t, err)
	require.NoError(t, s.JoinChannel(ctx, general.ID, "Carol"))
	require.NoError(t, s.JoinChannel(ctx, general.ID, "Alice"))
	_, err = s.PostMessage(ctx, general.ID, "Carol", "hello")
	require.NoError(t, err)
	require.NoError(t, s.Save())

	reloaded, err := store.Open(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	for _, pair := range []struct {
		name string
		get  func(svc messenger.Service) (any, error)
	}{
		{"users", func(svc messenger.Service) (any, error) { return svc.Users(ctx) }},
		{"channels", func(svc messenger.Service) (any, error) { return svc.Channels(ctx) }},
		{"messages", func(svc messenger.Service) (any, error) { return svc.AllMessages(ctx) }},
	} {
		t.Run(pair.name, func(t *testing.T) {
			want, err := pair.get(s)
			require.NoError(t, err)
			got, err := pair.get(reloaded)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestSenderNameIsNotPersisted(t *testing.T) {
	s, path := newStore(t, `{
		"users": [{"id": 1, "name": "Alice"}],
		"channels": [{"id": 1, "name": "general", "members": [{"id": 1, "name": "Alice"}]}]
	}`)

	_, err := s.PostMessage(context.Background(), 1, "Alice", "hi")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "sender_name")
	require.NotContains(t, string(data), "channel_id")
}

func TestFailedWriteChangesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "server.json")
	s := store.New(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, s.Load())
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "Alice")
	require.Error(t, err)
	require.False(t, messenger.IsReport(err))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	user, err := s.CreateUser(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, 1, user.ID)
}

func TestChannelIDAfterReload(t *testing.T) {
	s, path := newStore(t, "")
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := s.CreateChannel(ctx, name)
		require.NoError(t, err)
	}
	require.NoError(t, s.BanChannel(ctx, "three"))

	reloaded, err := store.Open(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	c, err := reloaded.CreateChannel(ctx, "four")
	require.NoError(t, err)
	require.Equal(t, 3, c.ID)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s, _ := newStore(t, `{
		"users": [{"id": 1, "name": "Alice"}],
		"channels": [{"id": 1, "name": "general", "members": [{"id": 1, "name": "Alice"}]}]
	}`)
	ctx := context.Background()

	users, err := s.Users(ctx)
	require.NoError(t, err)
	users[0].Name = "Mallory"

	channels, err := s.Channels(ctx)
	require.NoError(t, err)
	channels[0].Members[0].Name = "Mallory"

	members, err := s.ChannelMembers(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Alice", members[0].Name)
}
