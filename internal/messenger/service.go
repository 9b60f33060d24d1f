// Package messenger defines the operations shared by every messenger backend
// and the outcomes they report.
package messenger

import (
	"context"
	"messenger/internal/models"
)

// Service is implemented by the local JSON store, the SQL store and the remote
// HTTP client. All of them report the same outcomes for the same situations,
// see errors.go.
type Service interface {
	Users(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, name string) (models.User, error)
	BanUser(ctx context.Context, name string) error

	Channels(ctx context.Context) ([]models.Channel, error)
	CreateChannel(ctx context.Context, name string) (models.Channel, error)
	BanChannel(ctx context.Context, name string) error
	ChannelMembers(ctx context.Context, channelID int) ([]models.User, error)
	JoinChannel(ctx context.Context, channelID int, userName string) error

	PostMessage(ctx context.Context, channelID int, senderName string, content string) (models.Message, error)
	Messages(ctx context.Context, channelID int) ([]models.Message, error)
	AllMessages(ctx context.Context) ([]models.Message, error)
}
