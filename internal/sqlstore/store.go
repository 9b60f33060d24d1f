// Package sqlstore implements messenger.Service on sqlite or mysql. Every
// mutation runs in a single transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"messenger/internal/messenger"
	"messenger/internal/models"

	"go.uber.org/zap"
)

const channelCounter = "channel_id"

type Store struct {
	db      *sql.DB
	dialect Dialect
	sugar   *zap.SugaredLogger
}

var _ messenger.Service = (*Store)(nil)

// New creates the tables when missing.
func New(ctx context.Context, db *sql.DB, dialect Dialect, sugar *zap.SugaredLogger) (*Store, error) {
	if err := setupTables(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db, dialect: dialect, sugar: sugar}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userByName(ctx context.Context, q queryer, name string) (models.User, error) {
	user := models.User{Name: name}
	err := q.QueryRowContext(ctx, "SELECT id FROM users WHERE name = ?", name).Scan(&user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: %s", messenger.ErrUserNotFound, name)
	}
	return user, err
}

func channelByID(ctx context.Context, q queryer, id int) (models.Channel, error) {
	c := models.Channel{ID: id}
	err := q.QueryRowContext(ctx, "SELECT name FROM channels WHERE id = ?", id).Scan(&c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, fmt.Errorf("%w: %d", messenger.ErrChannelNotFound, id)
	}
	return c, err
}

func isMember(ctx context.Context, q queryer, channelID int, userID int) (bool, error) {
	var member bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id = ? AND user_id = ?)", channelID, userID).Scan(&member)
	return member, err
}

func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, name string) (models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, fmt.Errorf("%w: %s", messenger.ErrUserExists, name)
	}

	id, err := smallestUnusedUserID(ctx, tx)
	if err != nil {
		return models.User{}, err
	}

	// users are listed in creation order, ids get reused
	var position int
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), 0) + 1 FROM users").Scan(&position)
	if err != nil {
		return models.User{}, err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO users (id, name, position) VALUES (?, ?, ?)", id, name, position); err != nil {
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, err
	}

	s.sugar.Infof("User [%s] was created with ID [%d]", name, id)
	return models.User{ID: id, Name: name}, nil
}

func smallestUnusedUserID(ctx context.Context, tx *sql.Tx) (int, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	id := 1
	for rows.Next() {
		var used int
		if err := rows.Scan(&used); err != nil {
			return 0, err
		}
		if used > id {
			break
		}
		if used == id {
			id++
		}
	}
	return id, rows.Err()
}

// BanUser removes the user and their memberships. Their messages are kept.
func (s *Store) BanUser(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	user, err := userByName(ctx, tx, name)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM channel_members WHERE user_id = ?", user.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", user.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.sugar.Infof("User [%s] with ID [%d] was banned", name, user.ID)
	return nil
}

func (s *Store) Channels(ctx context.Context) ([]models.Channel, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM channels ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.Channel{}
	index := make(map[int]int)
	for rows.Next() {
		c := models.Channel{Members: []models.User{}}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		index[c.ID] = len(channels)
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := s.db.QueryContext(ctx, `
		SELECT
			channel_members.channel_id,
			users.id,
			users.name
		FROM
			channel_members
		JOIN
			users ON channel_members.user_id = users.id
		ORDER BY
			channel_members.channel_id, channel_members.position
	`)
	if err != nil {
		return nil, err
	}
	defer members.Close()

	for members.Next() {
		var channelID int
		var user models.User
		if err := members.Scan(&channelID, &user.ID, &user.Name); err != nil {
			return nil, err
		}
		if i, ok := index[channelID]; ok {
			channels[i].Members = append(channels[i].Members, user)
		}
	}
	return channels, members.Err()
}

func (s *Store) CreateChannel(ctx context.Context, name string) (models.Channel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM channels WHERE name = ?)", name).Scan(&exists)
	if err != nil {
		return models.Channel{}, err
	}
	if exists {
		return models.Channel{}, fmt.Errorf("%w: %s", messenger.ErrChannelExists, name)
	}

	var highest int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM channels").Scan(&highest); err != nil {
		return models.Channel{}, err
	}

	var last int
	err = tx.QueryRowContext(ctx, "SELECT last_id FROM counters WHERE name = ?", channelCounter).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, err
	}

	id := max(highest, last) + 1

	if _, err := tx.ExecContext(ctx, "INSERT INTO channels (id, name) VALUES (?, ?)", id, name); err != nil {
		return models.Channel{}, fmt.Errorf("failed to insert channel: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.dialect.upsertCounter, channelCounter, id); err != nil {
		return models.Channel{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Channel{}, err
	}

	s.sugar.Infof("Channel [%s] was created with ID [%d]", name, id)
	return models.Channel{ID: id, Name: name, Members: []models.User{}}, nil
}

// BanChannel removes the channel, its memberships and its messages.
func (s *Store) BanChannel(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx, "SELECT id FROM channels WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", messenger.ErrChannelNotFound, name)
	} else if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE channel_id = ?", id)
	if err != nil {
		return err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM channel_members WHERE channel_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM channels WHERE id = ?", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.sugar.Infof("Channel [%s] with ID [%d] was banned, [%d] messages removed", name, id, removed)
	return nil
}

func (s *Store) ChannelMembers(ctx context.Context, channelID int) ([]models.User, error) {
	if _, err := channelByID(ctx, s.db, channelID); err != nil {
		return []models.User{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			users.id,
			users.name
		FROM
			channel_members
		JOIN
			users ON channel_members.user_id = users.id
		WHERE
			channel_members.channel_id = ?
		ORDER BY
			channel_members.position
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Name); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) JoinChannel(ctx context.Context, channelID int, userName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	user, err := userByName(ctx, tx, userName)
	if err != nil {
		return err
	}

	if _, err := channelByID(ctx, tx, channelID); err != nil {
		return err
	}

	member, err := isMember(ctx, tx, channelID, user.ID)
	if err != nil {
		return err
	}
	if member {
		return fmt.Errorf("%w: %s is already in channel %d", messenger.ErrAlreadyMember, userName, channelID)
	}

	var position int
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), 0) + 1 FROM channel_members WHERE channel_id = ?", channelID).Scan(&position)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO channel_members (channel_id, user_id, position) VALUES (?, ?, ?)", channelID, user.ID, position)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.sugar.Infof("User [%s] with ID [%d] joined channel ID [%d]", userName, user.ID, channelID)
	return nil
}

func (s *Store) PostMessage(ctx context.Context, channelID int, senderName string, content string) (models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	user, err := userByName(ctx, tx, senderName)
	if err != nil {
		return models.Message{}, err
	}

	c, err := channelByID(ctx, tx, channelID)
	if err != nil {
		return models.Message{}, err
	}

	member, err := isMember(ctx, tx, channelID, user.ID)
	if err != nil {
		return models.Message{}, err
	}
	if !member {
		return models.Message{}, fmt.Errorf("%w: %s in channel %d", messenger.ErrNotMember, senderName, channelID)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO messages (sender_id, channel_id, content) VALUES (?, ?, ?)", user.ID, channelID, content)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}

	s.sugar.Debugf("User [%s] posted a message in channel [%s]", senderName, c.Name)
	return models.Message{SenderID: user.ID, ChannelID: channelID, Content: content, SenderName: user.Name}, nil
}

const messagesQuery = `
	SELECT
		messages.sender_id,
		messages.channel_id,
		messages.content,
		users.name
	FROM
		messages
	LEFT JOIN
		users ON messages.sender_id = users.id
`

func (s *Store) Messages(ctx context.Context, channelID int) ([]models.Message, error) {
	return s.queryMessages(ctx, messagesQuery+" WHERE messages.channel_id = ? ORDER BY messages.seq", channelID)
}

func (s *Store) AllMessages(ctx context.Context) ([]models.Message, error) {
	return s.queryMessages(ctx, messagesQuery+" ORDER BY messages.seq")
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var senderName sql.NullString
		if err := rows.Scan(&msg.SenderID, &msg.ChannelID, &msg.Content, &senderName); err != nil {
			return nil, err
		}
		msg.SenderName = models.UnknownSender
		if senderName.Valid {
			msg.SenderName = senderName.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
