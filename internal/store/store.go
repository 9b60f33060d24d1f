// Package store keeps users, channels and messages in memory and mirrors them
// to a single JSON file after every change.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"messenger/internal/messenger"
	"messenger/internal/models"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type channel struct {
	id      int
	name    string
	members []*models.User
}

func (c *channel) snapshot() models.Channel {
	return models.Channel{ID: c.id, Name: c.name, Members: snapshotUsers(c.members)}
}

func (c *channel) hasMember(userID int) bool {
	return lo.ContainsBy(c.members, func(u *models.User) bool { return u.ID == userID })
}

type state struct {
	users    []*models.User
	channels []*channel
	messages []models.Message
}

// clone copies the collections so a mutation can be prepared without touching
// the committed state. Users and channels are shared, they are never mutated
// in place.
func (st state) clone() state {
	return state{
		users:    slices.Clone(st.users),
		channels: slices.Clone(st.channels),
		messages: slices.Clone(st.messages),
	}
}

type Store struct {
	path  string
	sugar *zap.SugaredLogger

	mutex sync.RWMutex
	state state

	// highest channel id loaded or assigned, banned ids are not handed out again
	lastChannelID int
}

var _ messenger.Service = (*Store)(nil)

func New(path string, sugar *zap.SugaredLogger) *Store {
	return &Store{
		path:  path,
		sugar: sugar,
		state: state{users: []*models.User{}, channels: []*channel{}, messages: []models.Message{}},
	}
}

// Open creates a store and loads it from path.
func Open(path string, sugar *zap.SugaredLogger) (*Store, error) {
	s := New(path, sugar)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory state with the content of the JSON file. A file
// that doesn't exist yet loads as empty.
func (s *Store) Load() error {
	if s.path == "" {
		return messenger.ErrMissingPath
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.sugar.Infof("JSON file [%s] doesn't exist yet, starting empty", s.path)
		data = nil
	} else if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc document
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", s.path, err)
		}
	}

	st := doc.toState()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.state = st
	s.lastChannelID = maxChannelID(st.channels)

	s.sugar.Debugf("Loaded [%d] users, [%d] channels and [%d] messages from [%s]", len(st.users), len(st.channels), len(st.messages), s.path)
	return nil
}

// Save rewrites the JSON file with the current state.
func (s *Store) Save() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.write(s.state)
}

// write replaces the file atomically: temp file in the same directory, then rename.
func (s *Store) write(st state) error {
	if s.path == "" {
		return messenger.ErrMissingPath
	}

	data, err := json.MarshalIndent(fromState(st), "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	return nil
}

// commit persists next and only then makes it the current state, so a failed
// write changes nothing. Callers hold the write lock.
func (s *Store) commit(next state) error {
	if err := s.write(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) findUser(name string) (*models.User, int, bool) {
	return lo.FindIndexOf(s.state.users, func(u *models.User) bool { return u.Name == name })
}

func (s *Store) findChannelByID(id int) (*channel, int, bool) {
	return lo.FindIndexOf(s.state.channels, func(c *channel) bool { return c.id == id })
}

func (s *Store) findChannelByName(name string) (*channel, int, bool) {
	return lo.FindIndexOf(s.state.channels, func(c *channel) bool { return c.name == name })
}

func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return snapshotUsers(s.state.users), nil
}

func (s *Store) CreateUser(ctx context.Context, name string) (models.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, _, exists := s.findUser(name); exists {
		return models.User{}, fmt.Errorf("%w: %s", messenger.ErrUserExists, name)
	}

	used := lo.SliceToMap(s.state.users, func(u *models.User) (int, struct{}) { return u.ID, struct{}{} })
	id := 1
	for {
		if _, taken := used[id]; !taken {
			break
		}
		id++
	}

	user := &models.User{ID: id, Name: name}

	next := s.state.clone()
	next.users = append(next.users, user)
	if err := s.commit(next); err != nil {
		return models.User{}, err
	}

	s.sugar.Infof("User [%s] was created with ID [%d]", name, id)
	return *user, nil
}

// BanUser removes the user and their channel memberships. Messages they posted
// stay, and read back with an unknown sender.
func (s *Store) BanUser(ctx context.Context, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, i, found := s.findUser(name)
	if !found {
		return fmt.Errorf("%w: %s", messenger.ErrUserNotFound, name)
	}

	next := s.state.clone()
	next.users = slices.Delete(next.users, i, i+1)
	for j, c := range next.channels {
		if !c.hasMember(user.ID) {
			continue
		}
		next.channels[j] = &channel{
			id:      c.id,
			name:    c.name,
			members: lo.Reject(c.members, func(m *models.User, _ int) bool { return m.ID == user.ID }),
		}
	}

	if err := s.commit(next); err != nil {
		return err
	}

	s.sugar.Infof("User [%s] with ID [%d] was banned", name, user.ID)
	return nil
}

func (s *Store) Channels(ctx context.Context) ([]models.Channel, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return lo.Map(s.state.channels, func(c *channel, _ int) models.Channel { return c.snapshot() }), nil
}

func (s *Store) CreateChannel(ctx context.Context, name string) (models.Channel, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, _, exists := s.findChannelByName(name); exists {
		return models.Channel{}, fmt.Errorf("%w: %s", messenger.ErrChannelExists, name)
	}

	id := max(maxChannelID(s.state.channels), s.lastChannelID) + 1
	created := &channel{id: id, name: name, members: []*models.User{}}

	next := s.state.clone()
	next.channels = append(next.channels, created)
	if err := s.commit(next); err != nil {
		return models.Channel{}, err
	}
	s.lastChannelID = id

	s.sugar.Infof("Channel [%s] was created with ID [%d]", name, id)
	return created.snapshot(), nil
}

// BanChannel removes the channel together with every message posted in it.
func (s *Store) BanChannel(ctx context.Context, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	banned, i, found := s.findChannelByName(name)
	if !found {
		return fmt.Errorf("%w: %s", messenger.ErrChannelNotFound, name)
	}

	next := s.state.clone()
	next.channels = slices.Delete(next.channels, i, i+1)
	next.messages = lo.Reject(next.messages, func(m models.Message, _ int) bool { return m.ChannelID == banned.id })
	removed := len(s.state.messages) - len(next.messages)

	if err := s.commit(next); err != nil {
		return err
	}

	s.sugar.Infof("Channel [%s] with ID [%d] was banned, [%d] messages removed", name, banned.id, removed)
	return nil
}

func (s *Store) ChannelMembers(ctx context.Context, channelID int) ([]models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, _, found := s.findChannelByID(channelID)
	if !found {
		return []models.User{}, fmt.Errorf("%w: %d", messenger.ErrChannelNotFound, channelID)
	}
	return snapshotUsers(c.members), nil
}

func (s *Store) JoinChannel(ctx context.Context, channelID int, userName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, _, found := s.findUser(userName)
	if !found {
		return fmt.Errorf("%w: %s", messenger.ErrUserNotFound, userName)
	}

	c, i, found := s.findChannelByID(channelID)
	if !found {
		return fmt.Errorf("%w: %d", messenger.ErrChannelNotFound, channelID)
	}

	if c.hasMember(user.ID) {
		return fmt.Errorf("%w: %s is already in channel %d", messenger.ErrAlreadyMember, userName, channelID)
	}

	next := s.state.clone()
	next.channels[i] = &channel{id: c.id, name: c.name, members: append(slices.Clone(c.members), user)}
	if err := s.commit(next); err != nil {
		return err
	}

	s.sugar.Infof("User [%s] with ID [%d] joined channel ID [%d]", userName, user.ID, channelID)
	return nil
}

func (s *Store) PostMessage(ctx context.Context, channelID int, senderName string, content string) (models.Message, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, _, found := s.findUser(senderName)
	if !found {
		return models.Message{}, fmt.Errorf("%w: %s", messenger.ErrUserNotFound, senderName)
	}

	c, _, found := s.findChannelByID(channelID)
	if !found {
		return models.Message{}, fmt.Errorf("%w: %d", messenger.ErrChannelNotFound, channelID)
	}

	if !c.hasMember(user.ID) {
		return models.Message{}, fmt.Errorf("%w: %s in channel %d", messenger.ErrNotMember, senderName, channelID)
	}

	msg := models.Message{SenderID: user.ID, ChannelID: channelID, Content: content}

	next := s.state.clone()
	next.messages = append(next.messages, msg)
	if err := s.commit(next); err != nil {
		return models.Message{}, err
	}

	s.sugar.Debugf("User [%s] posted a message in channel [%s]", senderName, c.name)
	msg.SenderName = user.Name
	return msg, nil
}

func (s *Store) Messages(ctx context.Context, channelID int) ([]models.Message, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	messages := lo.Filter(s.state.messages, func(m models.Message, _ int) bool { return m.ChannelID == channelID })
	return s.withSenderNames(messages), nil
}

func (s *Store) AllMessages(ctx context.Context) ([]models.Message, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.withSenderNames(s.state.messages), nil
}

// withSenderNames returns copies of messages with SenderName filled in.
func (s *Store) withSenderNames(messages []models.Message) []models.Message {
	names := lo.SliceToMap(s.state.users, func(u *models.User) (int, string) { return u.ID, u.Name })

	return lo.Map(messages, func(m models.Message, _ int) models.Message {
		name, ok := names[m.SenderID]
		if !ok {
			name = models.UnknownSender
		}
		m.SenderName = name
		return m
	})
}

func snapshotUsers(users []*models.User) []models.User {
	return lo.Map(users, func(u *models.User, _ int) models.User { return *u })
}

func maxChannelID(channels []*channel) int {
	highest := 0
	for _, c := range channels {
		highest = max(highest, c.id)
	}
	return highest
}
