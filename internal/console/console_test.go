package console_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"messenger/internal/console"
	"messenger/internal/messenger"
	"messenger/internal/models"
	"messenger/internal/store"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func run(t *testing.T, svc messenger.Service, lines ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")

	err := console.New(svc, in, &out).Run(context.Background())
	return out.String(), err
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "server.json"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return s
}

func TestQuit(t *testing.T) {
	out, err := run(t, newStore(t), "x")
	require.NoError(t, err)
	assert.Contains(t, out, "Bye!")
}

func TestEndOfInputQuits(t *testing.T) {
	out, err := run(t, newStore(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Bye!")
}

func TestUnknownOption(t *testing.T) {
	out, err := run(t, newStore(t), "42", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown option: 42")
}

func TestSession(t *testing.T) {
	s := newStore(t)

	out, err := run(t, s,
		"3", "Alice",
		"3", "Alice",
		"6", "Town square",
		"7", "1", "Alice",
		"7", "1", "Alice",
		"11", "1", "Alice", "Hello there",
		"11", "1", "Bob", "Hi",
		"1",
		"5",
		"10", "1",
		"x",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "User Alice was created with ID 1.")
	assert.Contains(t, out, messenger.ErrUserExists.Error())
	assert.Contains(t, out, "Channel Town square was created with ID 1.")
	assert.Contains(t, out, "Alice joined channel 1.")
	assert.Contains(t, out, messenger.ErrAlreadyMember.Error())
	assert.Contains(t, out, "Message sent.")
	assert.Contains(t, out, messenger.ErrUserNotFound.Error())
	assert.Contains(t, out, "Hello there")

	messages, err := s.AllMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Message{{SenderID: 1, ChannelID: 1, Content: "Hello there", SenderName: "Alice"}}, messages)
}

func TestInvalidInput(t *testing.T) {
	s := newStore(t)

	out, err := run(t, s,
		"3", "",
		"2", "abc",
		"x",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid input: empty_name")
	assert.Contains(t, out, "Invalid channel ID.")

	users, err := s.Users(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestEmptyLists(t *testing.T) {
	out, err := run(t, newStore(t), "1", "5", "9", "2", "3", "x")
	require.NoError(t, err)
	assert.Contains(t, out, "No users found.")
	assert.Contains(t, out, "No channels found.")
	assert.Contains(t, out, "No messages.")
	assert.Contains(t, out, messenger.ErrChannelNotFound.Error())
}

type failingService struct {
	messenger.Service
}

func (failingService) Users(ctx context.Context) ([]models.User, error) {
	return nil, errors.New("disk on fire")
}

func TestFailuresEndTheLoop(t *testing.T) {
	_, err := run(t, failingService{}, "1", "x")
	require.EqualError(t, err, "disk on fire")
}

// blockingInput returns an input that never ends on its own, along with the
// writer feeding it.
func blockingInput(t *testing.T) (io.Reader, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	return r, w
}

func TestCancelWhileWaitingForInput(t *testing.T) {
	s := newStore(t)
	in, _ := blockingInput(t)
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- console.New(s, in, &out).Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("console kept waiting for input after cancel")
	}
}

func TestCancelDuringAction(t *testing.T) {
	s := newStore(t)
	in, w := blockingInput(t)
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- console.New(s, in, &out).Run(ctx) }()

	// choose "create a user", then never give the name
	_, err := w.Write([]byte("3\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("console kept waiting for input after cancel")
	}

	users, err := s.Users(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
