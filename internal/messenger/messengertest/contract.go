// Package messengertest holds behavior tests every messenger.Service backend
// has to pass.
package messengertest

import (
	"context"
	"messenger/internal/messenger"
	"messenger/internal/models"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backend for a single test.
type Factory func(t *testing.T) messenger.Service

func Run(t *testing.T, newService Factory) {
	tests := []struct {
		name string
		run  func(t *testing.T, ctx context.Context, svc messenger.Service)
	}{
		{"CreateUser assigns smallest unused id", testUserIDs},
		{"CreateUser rejects duplicate name", testDuplicateUser},
		{"CreateUser names are case sensitive", testCaseSensitiveNames},
		{"BanUser unknown name", testBanUnknownUser},
		{"BanUser removes memberships and keeps messages", testBanUserCascade},
		{"CreateChannel ids are not reused", testChannelIDs},
		{"CreateChannel rejects duplicate name", testDuplicateChannel},
		{"BanChannel removes its messages", testBanChannelCascade},
		{"BanChannel unknown name", testBanUnknownChannel},
		{"ChannelMembers unknown channel", testMembersUnknownChannel},
		{"JoinChannel twice", testJoinTwice},
		{"JoinChannel unknown user or channel", testJoinUnknown},
		{"PostMessage requires membership", testPostRequiresMembership},
		{"PostMessage unknown user or channel", testPostUnknown},
		{"Messages filter by channel in order", testMessagesOrder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, context.Background(), newService(t))
		})
	}
}

func mustCreateUser(t *testing.T, ctx context.Context, svc messenger.Service, name string) models.User {
	t.Helper()
	user, err := svc.CreateUser(ctx, name)
	require.NoError(t, err)
	return user
}

func mustCreateChannel(t *testing.T, ctx context.Context, svc messenger.Service, name string) models.Channel {
	t.Helper()
	c, err := svc.CreateChannel(ctx, name)
	require.NoError(t, err)
	return c
}

func userIDs(t *testing.T, ctx context.Context, svc messenger.Service) []int {
	t.Helper()
	users, err := svc.Users(ctx)
	require.NoError(t, err)
	return lo.Map(users, func(u models.User, _ int) int { return u.ID })
}

func testUserIDs(t *testing.T, ctx context.Context, svc messenger.Service) {
	require.Equal(t, 1, mustCreateUser(t, ctx, svc, "Alice").ID)
	require.Equal(t, 2, mustCreateUser(t, ctx, svc, "Bob").ID)
	require.Equal(t, 3, mustCreateUser(t, ctx, svc, "Carol").ID)

	require.NoError(t, svc.BanUser(ctx, "Bob"))
	require.Equal(t, []int{1, 3}, userIDs(t, ctx, svc))

	require.Equal(t, 2, mustCreateUser(t, ctx, svc, "Dave").ID)
	require.Equal(t, 4, mustCreateUser(t, ctx, svc, "Eve").ID)
	// listed in creation order, not by id
	require.Equal(t, []int{1, 3, 2, 4}, userIDs(t, ctx, svc))
}

func testDuplicateUser(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")

	_, err := svc.CreateUser(ctx, "Alice")
	require.ErrorIs(t, err, messenger.ErrUserExists)
	require.ErrorIs(t, err, messenger.ErrConflict)

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.User{{ID: 1, Name: "Alice"}}, users)
}

func testCaseSensitiveNames(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "alice")
	mustCreateUser(t, ctx, svc, "Alice")

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func testBanUnknownUser(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")

	err := svc.BanUser(ctx, "Bob")
	require.ErrorIs(t, err, messenger.ErrUserNotFound)
	require.True(t, messenger.IsReport(err))
	require.Equal(t, []int{1}, userIDs(t, ctx, svc))
}

func testBanUserCascade(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")
	bob := mustCreateUser(t, ctx, svc, "Bob")
	square := mustCreateChannel(t, ctx, svc, "Town square")

	require.NoError(t, svc.JoinChannel(ctx, square.ID, "Alice"))
	require.NoError(t, svc.JoinChannel(ctx, square.ID, "Bob"))
	_, err := svc.PostMessage(ctx, square.ID, "Alice", "hi")
	require.NoError(t, err)

	require.NoError(t, svc.BanUser(ctx, "Alice"))

	members, err := svc.ChannelMembers(ctx, square.ID)
	require.NoError(t, err)
	require.Equal(t, []models.User{bob}, members)

	messages, err := svc.Messages(ctx, square.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, models.UnknownSender, messages[0].SenderName)
	require.Equal(t, "hi", messages[0].Content)
}

func testChannelIDs(t *testing.T, ctx context.Context, svc messenger.Service) {
	require.Equal(t, 1, mustCreateChannel(t, ctx, svc, "one").ID)
	require.Equal(t, 2, mustCreateChannel(t, ctx, svc, "two").ID)
	require.Equal(t, 3, mustCreateChannel(t, ctx, svc, "three").ID)

	require.NoError(t, svc.BanChannel(ctx, "two"))
	require.Equal(t, 4, mustCreateChannel(t, ctx, svc, "four").ID)

	require.NoError(t, svc.BanChannel(ctx, "four"))
	require.Equal(t, 5, mustCreateChannel(t, ctx, svc, "five").ID)

	channels, err := svc.Channels(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 5}, lo.Map(channels, func(c models.Channel, _ int) int { return c.ID }))
}

func testDuplicateChannel(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateChannel(t, ctx, svc, "general")

	_, err := svc.CreateChannel(ctx, "general")
	require.ErrorIs(t, err, messenger.ErrChannelExists)

	channels, err := svc.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Empty(t, channels[0].Members)
}

func testBanChannelCascade(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")
	general := mustCreateChannel(t, ctx, svc, "general")
	random := mustCreateChannel(t, ctx, svc, "random")

	for _, c := range []models.Channel{general, random} {
		require.NoError(t, svc.JoinChannel(ctx, c.ID, "Alice"))
		_, err := svc.PostMessage(ctx, c.ID, "Alice", "hello "+c.Name)
		require.NoError(t, err)
	}

	require.NoError(t, svc.BanChannel(ctx, "general"))

	channels, err := svc.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "random", channels[0].Name)

	all, err := svc.AllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, random.ID, all[0].ChannelID)

	left, err := svc.Messages(ctx, general.ID)
	require.NoError(t, err)
	require.Empty(t, left)
}

func testBanUnknownChannel(t *testing.T, ctx context.Context, svc messenger.Service) {
	err := svc.BanChannel(ctx, "nowhere")
	require.ErrorIs(t, err, messenger.ErrChannelNotFound)
}

func testMembersUnknownChannel(t *testing.T, ctx context.Context, svc messenger.Service) {
	members, err := svc.ChannelMembers(ctx, 42)
	require.ErrorIs(t, err, messenger.ErrChannelNotFound)
	require.Empty(t, members)
}

func testJoinTwice(t *testing.T, ctx context.Context, svc messenger.Service) {
	bob := mustCreateUser(t, ctx, svc, "Bob")
	alice := mustCreateUser(t, ctx, svc, "Alice")
	c := mustCreateChannel(t, ctx, svc, "general")

	require.NoError(t, svc.JoinChannel(ctx, c.ID, "Alice"))
	require.NoError(t, svc.JoinChannel(ctx, c.ID, "Bob"))

	err := svc.JoinChannel(ctx, c.ID, "Alice")
	require.ErrorIs(t, err, messenger.ErrAlreadyMember)

	members, err := svc.ChannelMembers(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, []models.User{alice, bob}, members)
}

func testJoinUnknown(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")
	c := mustCreateChannel(t, ctx, svc, "general")

	require.ErrorIs(t, svc.JoinChannel(ctx, c.ID, "Bob"), messenger.ErrUserNotFound)
	require.ErrorIs(t, svc.JoinChannel(ctx, c.ID+1, "Alice"), messenger.ErrChannelNotFound)

	members, err := svc.ChannelMembers(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, members)
}

func testPostRequiresMembership(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")
	mustCreateUser(t, ctx, svc, "Bob")
	square := mustCreateChannel(t, ctx, svc, "Town square")
	require.NoError(t, svc.JoinChannel(ctx, square.ID, "Alice"))

	msg, err := svc.PostMessage(ctx, square.ID, "Alice", "hi")
	require.NoError(t, err)
	require.Equal(t, models.Message{SenderID: 1, ChannelID: square.ID, Content: "hi", SenderName: "Alice"}, msg)

	_, err = svc.PostMessage(ctx, square.ID, "Bob", "yo")
	require.ErrorIs(t, err, messenger.ErrNotMember)
	require.ErrorIs(t, err, messenger.ErrPrecondition)

	all, err := svc.AllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func testPostUnknown(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")
	c := mustCreateChannel(t, ctx, svc, "general")

	_, err := svc.PostMessage(ctx, c.ID, "Bob", "hi")
	require.ErrorIs(t, err, messenger.ErrUserNotFound)

	_, err = svc.PostMessage(ctx, c.ID+1, "Alice", "hi")
	require.ErrorIs(t, err, messenger.ErrChannelNotFound)

	all, err := svc.AllMessages(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func testMessagesOrder(t *testing.T, ctx context.Context, svc messenger.Service) {
	mustCreateUser(t, ctx, svc, "Alice")
	mustCreateUser(t, ctx, svc, "Bob")
	general := mustCreateChannel(t, ctx, svc, "general")
	random := mustCreateChannel(t, ctx, svc, "random")

	for _, c := range []models.Channel{general, random} {
		require.NoError(t, svc.JoinChannel(ctx, c.ID, "Alice"))
		require.NoError(t, svc.JoinChannel(ctx, c.ID, "Bob"))
	}

	posts := []struct {
		channel int
		sender  string
		content string
	}{
		{general.ID, "Alice", "first"},
		{random.ID, "Bob", "elsewhere"},
		{general.ID, "Bob", "second"},
		{general.ID, "Alice", "third"},
	}
	for _, p := range posts {
		_, err := svc.PostMessage(ctx, p.channel, p.sender, p.content)
		require.NoError(t, err)
	}

	messages, err := svc.Messages(ctx, general.ID)
	require.NoError(t, err)
	require.Equal(t, []models.Message{
		{SenderID: 1, ChannelID: general.ID, Content: "first", SenderName: "Alice"},
		{SenderID: 2, ChannelID: general.ID, Content: "second", SenderName: "Bob"},
		{SenderID: 1, ChannelID: general.ID, Content: "third", SenderName: "Alice"},
	}, messages)

	all, err := svc.AllMessages(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "elsewhere", "second", "third"},
		lo.Map(all, func(m models.Message, _ int) string { return m.Content }))
	require.Equal(t, "Bob", all[1].SenderName)
}
