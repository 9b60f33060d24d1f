package hub

import (
	"context"
	"messenger/internal/messenger"
	"messenger/internal/models"

	"go.uber.org/zap"
)

type notifier struct {
	messenger.Service
	hub   *Hub
	sugar *zap.SugaredLogger
}

// Notify wraps svc so that every successful change is emitted on h. A failed
// emit is logged, the change itself already happened.
func Notify(svc messenger.Service, h *Hub, sugar *zap.SugaredLogger) messenger.Service {
	return &notifier{Service: svc, hub: h, sugar: sugar}
}

func (n *notifier) emit(ctx context.Context, eventType string, channelID int, data any) {
	if err := n.hub.Emit(ctx, eventType, channelID, data); err != nil {
		n.sugar.Warnf("Failed to emit %s event: %v", eventType, err)
	}
}

func (n *notifier) CreateUser(ctx context.Context, name string) (models.User, error) {
	user, err := n.Service.CreateUser(ctx, name)
	if err != nil {
		return user, err
	}
	n.emit(ctx, UserCreated, 0, user)
	return user, nil
}

func (n *notifier) BanUser(ctx context.Context, name string) error {
	if err := n.Service.BanUser(ctx, name); err != nil {
		return err
	}
	n.emit(ctx, UserBanned, 0, map[string]string{"name": name})
	return nil
}

func (n *notifier) CreateChannel(ctx context.Context, name string) (models.Channel, error) {
	channel, err := n.Service.CreateChannel(ctx, name)
	if err != nil {
		return channel, err
	}
	n.emit(ctx, ChannelCreated, 0, channel)
	return channel, nil
}

func (n *notifier) BanChannel(ctx context.Context, name string) error {
	if err := n.Service.BanChannel(ctx, name); err != nil {
		return err
	}
	n.emit(ctx, ChannelBanned, 0, map[string]string{"name": name})
	return nil
}

func (n *notifier) JoinChannel(ctx context.Context, channelID int, userName string) error {
	if err := n.Service.JoinChannel(ctx, channelID, userName); err != nil {
		return err
	}
	n.emit(ctx, MemberJoined, channelID, map[string]any{"channel_id": channelID, "name": userName})
	return nil
}

func (n *notifier) PostMessage(ctx context.Context, channelID int, senderName string, content string) (models.Message, error) {
	message, err := n.Service.PostMessage(ctx, channelID, senderName, content)
	if err != nil {
		return message, err
	}
	n.emit(ctx, MessagePosted, channelID, message)
	return message, nil
}
