// Package remote implements the messenger operations against a messenger HTTP
// server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"messenger/internal/cache"
	"messenger/internal/config"
	"messenger/internal/messenger"
	"messenger/internal/models"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	cacheTTL   time.Duration
	sugar      *zap.SugaredLogger
}

var _ messenger.Service = (*Client)(nil)

func New(cfg *config.Config, c *cache.Cache, sugar *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.RemoteURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RemoteTimeout()},
		cache:      c,
		cacheTTL:   cfg.CacheTTL(),
		sugar:      sugar,
	}
}

func userNameKey(userID int) string {
	return fmt.Sprintf("user_name:%d", userID)
}

// do sends body as JSON and decodes the reply into out when out isn't nil.
// Error replies carrying a wire code come back as the matching messenger error.
func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.sugar.Debugf("%s %s", method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		code := strings.TrimSpace(string(data))

		if err := messenger.FromCode(code); err != nil {
			return err
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s %s", messenger.ErrNotFound, method, path)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s %s", messenger.ErrConflict, method, path)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s %s", messenger.ErrPrecondition, method, path)
		}
		return fmt.Errorf("server replied %d to %s %s: %s", resp.StatusCode, method, path, code)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reply of %s %s: %w", method, path, err)
	}
	return nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/test", nil, nil)
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) findUser(ctx context.Context, name string) (models.User, bool, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return models.User{}, false, err
	}

	user, found := lo.Find(users, func(u models.User) bool { return u.Name == name })
	return user, found, nil
}

func (c *Client) CreateUser(ctx context.Context, name string) (models.User, error) {
	_, exists, err := c.findUser(ctx, name)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, fmt.Errorf("%w: %s", messenger.ErrUserExists, name)
	}

	var user models.User
	if err := c.do(ctx, http.MethodPost, "/users/create", map[string]string{"name": name}, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (c *Client) BanUser(ctx context.Context, name string) error {
	user, found, err := c.findUser(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", messenger.ErrUserNotFound, name)
	}

	if err := c.do(ctx, http.MethodPost, "/users/ban", map[string]string{"name": name}, nil); err != nil {
		return err
	}

	if err := c.cache.Delete(ctx, userNameKey(user.ID)); err != nil {
		c.sugar.Warnf("Failed to evict cached name of user ID [%d]: %v", user.ID, err)
	}
	return nil
}

func (c *Client) Channels(ctx context.Context) ([]models.Channel, error) {
	channels := []models.Channel{}
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func (c *Client) CreateChannel(ctx context.Context, name string) (models.Channel, error) {
	var channel models.Channel
	if err := c.do(ctx, http.MethodPost, "/channels/create", map[string]string{"name": name}, &channel); err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (c *Client) BanChannel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/channels/ban", map[string]string{"name": name}, nil)
}

func (c *Client) ChannelMembers(ctx context.Context, channelID int) ([]models.User, error) {
	members := []models.User{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%d/members", channelID), nil, &members); err != nil {
		return []models.User{}, err
	}
	return members, nil
}

// member looks up the user and whether they are in the channel.
func (c *Client) member(ctx context.Context, channelID int, name string) (models.User, bool, error) {
	user, found, err := c.findUser(ctx, name)
	if err != nil {
		return models.User{}, false, err
	}
	if !found {
		return models.User{}, false, fmt.Errorf("%w: %s", messenger.ErrUserNotFound, name)
	}

	members, err := c.ChannelMembers(ctx, channelID)
	if err != nil {
		return models.User{}, false, err
	}

	isMember := lo.ContainsBy(members, func(u models.User) bool { return u.ID == user.ID })
	return user, isMember, nil
}

func (c *Client) JoinChannel(ctx context.Context, channelID int, userName string) error {
	user, isMember, err := c.member(ctx, channelID, userName)
	if err != nil {
		return err
	}
	if isMember {
		return fmt.Errorf("%w: %s is already in channel %d", messenger.ErrAlreadyMember, userName, channelID)
	}

	request := map[string]any{"user_id": user.ID, "name": user.Name}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/join", channelID), request, nil)
}

func (c *Client) PostMessage(ctx context.Context, channelID int, senderName string, content string) (models.Message, error) {
	user, isMember, err := c.member(ctx, channelID, senderName)
	if err != nil {
		return models.Message{}, err
	}
	if !isMember {
		return models.Message{}, fmt.Errorf("%w: %s in channel %d", messenger.ErrNotMember, senderName, channelID)
	}

	request := map[string]any{"sender_id": user.ID, "sender_name": user.Name, "content": content}

	var message models.Message
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/messages/post", channelID), request, &message); err != nil {
		return models.Message{}, err
	}
	message.SenderName = user.Name
	return message, nil
}

func (c *Client) Messages(ctx context.Context, channelID int) ([]models.Message, error) {
	messages, err := c.AllMessages(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(messages, func(m models.Message, _ int) bool { return m.ChannelID == channelID }), nil
}

func (c *Client) AllMessages(ctx context.Context) ([]models.Message, error) {
	messages := []models.Message{}
	if err := c.do(ctx, http.MethodGet, "/messages", nil, &messages); err != nil {
		return nil, err
	}

	// the server resolves names, older servers leave them out
	for i := range messages {
		if messages[i].SenderName == "" {
			messages[i].SenderName = c.senderName(ctx, messages[i].SenderID)
		}
	}
	return messages, nil
}

// senderName resolves a user id through the cache, then the server. Users that
// can't be found are not cached.
func (c *Client) senderName(ctx context.Context, userID int) string {
	key := userNameKey(userID)

	name, err := c.cache.Get(ctx, key)
	if err != nil {
		c.sugar.Warnf("Failed to read cached name of user ID [%d]: %v", userID, err)
	}
	if name != "" {
		return name
	}

	var user models.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &user); err != nil {
		if !messenger.IsReport(err) {
			c.sugar.Warnf("Failed to look up user ID [%d]: %v", userID, err)
		}
		return models.UnknownSender
	}

	if err := c.cache.Set(ctx, key, user.Name, c.cacheTTL); err != nil {
		c.sugar.Warnf("Failed to cache name of user ID [%d]: %v", userID, err)
	}
	return user.Name
}
