// Package console is the interactive menu over a messenger backend.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"messenger/internal/messenger"
	"messenger/internal/models"
	"messenger/internal/validator"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

type Console struct {
	svc     messenger.Service
	scanner *bufio.Scanner
	out     io.Writer
	// fed by read while Run is going, closed once the input ends
	lines chan string
}

func New(svc messenger.Service, in io.Reader, out io.Writer) *Console {
	return &Console{svc: svc, scanner: bufio.NewScanner(in), out: out}
}

const menu = `
===================== Messenger =====================

---- Users ----
1. See all users
2. See the members of a channel
3. Create a user
4. Ban a user

---- Channels ----
5. See channels
6. Create a channel
7. Join a channel
8. Ban a channel

---- Messages ----
9. List all messages
10. Read the messages of a channel
11. Send a message

x. Quit
`

// Run shows the menu until the user quits, the input ends or ctx is done.
// Reported outcomes are printed and the loop goes on. Other errors end it.
func (c *Console) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	c.lines = make(chan string)
	go c.read(done)

	actions := map[string]func(context.Context) error{
		"1":  c.listUsers,
		"2":  c.listMembers,
		"3":  c.createUser,
		"4":  c.banUser,
		"5":  c.listChannels,
		"6":  c.createChannel,
		"7":  c.joinChannel,
		"8":  c.banChannel,
		"9":  c.listAllMessages,
		"10": c.listMessages,
		"11": c.postMessage,
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(c.out, color.Cyan.Sprint(menu))
		choice, ok := c.prompt(ctx, "Select an option: ")
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ok || choice == "x" {
			fmt.Fprintln(c.out, color.Red.Sprint("Bye!"))
			return nil
		}

		action, found := actions[choice]
		if !found {
			fmt.Fprintln(c.out, color.Red.Sprintf("Unknown option: %s", choice))
			continue
		}

		if err := action(ctx); err != nil {
			return err
		}
	}
}

// read scans the input on its own so a prompt can give up when the context is
// done. It stops at the end of the input or once done is closed.
func (c *Console) read(done <-chan struct{}) {
	defer close(c.lines)
	for c.scanner.Scan() {
		select {
		case c.lines <- c.scanner.Text():
		case <-done:
			return
		}
	}
}

// prompt returns the next input line, false once the input is exhausted or ctx
// is done.
func (c *Console) prompt(ctx context.Context, question string) (string, bool) {
	fmt.Fprint(c.out, color.Yellow.Sprint(question))
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", false
	}
}

func (c *Console) promptChannelID(ctx context.Context) (int, bool) {
	value, ok := c.prompt(ctx, "Channel ID: ")
	if !ok {
		return 0, false
	}

	channelID, err := strconv.Atoi(value)
	if err != nil {
		fmt.Fprintln(c.out, color.Red.Sprint("Invalid channel ID."))
		return 0, false
	}
	return channelID, true
}

// promptText asks for a value and rejects it when check fails.
func (c *Console) promptText(ctx context.Context, question string, check func(string) error) (string, bool) {
	value, ok := c.prompt(ctx, question)
	if !ok {
		return "", false
	}

	if err := check(value); err != nil {
		fmt.Fprintln(c.out, color.Red.Sprintf("Invalid input: %s", err))
		return "", false
	}
	return value, true
}

// report prints the outcome of an operation. It only returns errors that are
// not reported outcomes.
func (c *Console) report(err error, success string) error {
	switch {
	case err == nil:
		fmt.Fprintln(c.out, color.Green.Sprint(success))
	case errors.Is(err, messenger.ErrAlreadyMember):
		fmt.Fprintln(c.out, color.Blue.Sprint(err))
	case messenger.IsReport(err):
		fmt.Fprintln(c.out, color.Red.Sprint(err))
	default:
		return err
	}
	return nil
}

func (c *Console) table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

func userRows(users []models.User) [][]string {
	return lo.Map(users, func(u models.User, _ int) []string {
		return []string{strconv.Itoa(u.ID), u.Name}
	})
}

func (c *Console) listUsers(ctx context.Context) error {
	users, err := c.svc.Users(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Fprintln(c.out, color.Red.Sprint("No users found."))
		return nil
	}

	fmt.Fprintln(c.out, color.Green.Sprint("User list"))
	c.table([]string{"ID", "Name"}, userRows(users))
	return nil
}

func (c *Console) listMembers(ctx context.Context) error {
	channelID, ok := c.promptChannelID(ctx)
	if !ok {
		return nil
	}

	members, err := c.svc.ChannelMembers(ctx, channelID)
	if err != nil {
		return c.report(err, "")
	}

	if len(members) == 0 {
		fmt.Fprintln(c.out, color.Red.Sprintf("Channel %d has no members.", channelID))
		return nil
	}

	fmt.Fprintln(c.out, color.Green.Sprintf("Members of channel %d", channelID))
	c.table([]string{"ID", "Name"}, userRows(members))
	return nil
}

func (c *Console) createUser(ctx context.Context) error {
	name, ok := c.promptText(ctx, "Name of the new user: ", validator.Name)
	if !ok {
		return nil
	}

	user, err := c.svc.CreateUser(ctx, name)
	return c.report(err, fmt.Sprintf("User %s was created with ID %d.", name, user.ID))
}

func (c *Console) banUser(ctx context.Context) error {
	name, ok := c.prompt(ctx, "Name of the user to ban: ")
	if !ok {
		return nil
	}

	return c.report(c.svc.BanUser(ctx, name), fmt.Sprintf("User %s was banned.", name))
}

func (c *Console) listChannels(ctx context.Context) error {
	channels, err := c.svc.Channels(ctx)
	if err != nil {
		return err
	}

	if len(channels) == 0 {
		fmt.Fprintln(c.out, color.Red.Sprint("No channels found."))
		return nil
	}

	fmt.Fprintln(c.out, color.Green.Sprint("Channel list"))
	c.table([]string{"ID", "Name", "Members"}, lo.Map(channels, func(ch models.Channel, _ int) []string {
		names := lo.Map(ch.Members, func(u models.User, _ int) string { return u.Name })
		return []string{strconv.Itoa(ch.ID), ch.Name, strings.Join(names, ", ")}
	}))
	return nil
}

func (c *Console) createChannel(ctx context.Context) error {
	name, ok := c.promptText(ctx, "Name of the new channel: ", validator.Name)
	if !ok {
		return nil
	}

	channel, err := c.svc.CreateChannel(ctx, name)
	return c.report(err, fmt.Sprintf("Channel %s was created with ID %d.", name, channel.ID))
}

func (c *Console) joinChannel(ctx context.Context) error {
	channelID, ok := c.promptChannelID(ctx)
	if !ok {
		return nil
	}
	name, ok := c.prompt(ctx, "Name of the user: ")
	if !ok {
		return nil
	}

	err := c.svc.JoinChannel(ctx, channelID, name)
	return c.report(err, fmt.Sprintf("%s joined channel %d.", name, channelID))
}

func (c *Console) banChannel(ctx context.Context) error {
	name, ok := c.prompt(ctx, "Name of the channel to ban: ")
	if !ok {
		return nil
	}

	return c.report(c.svc.BanChannel(ctx, name), fmt.Sprintf("Channel %s was banned.", name))
}

func messageRows(messages []models.Message) [][]string {
	return lo.Map(messages, func(m models.Message, _ int) []string {
		return []string{strconv.Itoa(m.ChannelID), m.SenderName, m.Content}
	})
}

func (c *Console) listAllMessages(ctx context.Context) error {
	messages, err := c.svc.AllMessages(ctx)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Fprintln(c.out, color.Red.Sprint("No messages."))
		return nil
	}

	fmt.Fprintln(c.out, color.Green.Sprint("Messages"))
	c.table([]string{"Channel", "Sender", "Content"}, messageRows(messages))
	return nil
}

func (c *Console) listMessages(ctx context.Context) error {
	channelID, ok := c.promptChannelID(ctx)
	if !ok {
		return nil
	}

	messages, err := c.svc.Messages(ctx, channelID)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Fprintln(c.out, color.Red.Sprintf("No messages in channel %d.", channelID))
		return nil
	}

	fmt.Fprintln(c.out, color.Green.Sprintf("Messages in channel %d", channelID))
	c.table([]string{"Channel", "Sender", "Content"}, messageRows(messages))
	return nil
}

func (c *Console) postMessage(ctx context.Context) error {
	channelID, ok := c.promptChannelID(ctx)
	if !ok {
		return nil
	}
	name, ok := c.prompt(ctx, "Name of the sender: ")
	if !ok {
		return nil
	}
	content, ok := c.promptText(ctx, "Message: ", validator.Content)
	if !ok {
		return nil
	}

	_, err := c.svc.PostMessage(ctx, channelID, name, content)
	return c.report(err, "Message sent.")
}
