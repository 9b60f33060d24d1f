// Package hub pushes messenger events to websocket clients. With a redis client
// events go through redis pub/sub so every server instance sees them, without
// one they are delivered in process.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"messenger/internal/snowflake"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisPrefix = "messenger:"
	writeWait   = 10 * time.Second
	sendBuffer  = 64
)

// Event is what clients receive, one JSON object per websocket message.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	SessionID string
	Topic     string
	conn      *websocket.Conn
	send      chan []byte
}

type Hub struct {
	sugar       *zap.SugaredLogger
	redisClient *redis.Client
	generator   *snowflake.Generator
	local       *LocalPubSub
	upgrader    websocket.Upgrader
}

// New returns a hub. redisClient may be nil.
func New(sugar *zap.SugaredLogger, redisClient *redis.Client, generator *snowflake.Generator) *Hub {
	return &Hub{
		sugar:       sugar,
		redisClient: redisClient,
		generator:   generator,
		local:       NewLocalPubSub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Hub) selfContained() bool {
	return h.redisClient == nil
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	return h.local.count()
}

// HandleClient upgrades the request to a websocket and streams events to it
// until the client goes away. ?channel=<id> limits the stream to one channel.
func (h *Hub) HandleClient(w http.ResponseWriter, r *http.Request) {
	topic := TopicGlobal
	if value := r.URL.Query().Get("channel"); value != "" {
		channelID, err := strconv.Atoi(value)
		if err != nil || channelID <= 0 {
			http.Error(w, "Invalid channel ID", http.StatusBadRequest)
			return
		}
		topic = ChannelTopic(channelID)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already replied
		h.sugar.Debug(err)
		return
	}
	defer conn.Close()

	client := &Client{
		SessionID: uuid.NewString(),
		Topic:     topic,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}

	h.sugar.Debugf("Adding session ID [%s] to clients on topic [%s]", client.SessionID, topic)
	h.local.Subscribe(topic, client)
	defer func() {
		h.sugar.Debugf("Removing session ID [%s] from clients", client.SessionID)
		h.local.Unsubscribe(topic, client)
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// writing events to the client
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case message := <-client.send:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.sugar.Debug(err)
					cancel()
					return
				}
			}
		}
	}()

	// clients don't send anything, reading only notices when they leave
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.sugar.Debug(err)
			break
		}
	}
}

// Emit sends an event to everyone on the global topic and, when channelID is
// not 0, to those watching that channel.
func (h *Hub) Emit(ctx context.Context, eventType string, channelID int, data any) error {
	id, err := h.generator.Generate()
	if err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return err
	}

	message, err := json.Marshal(Event{
		ID:   strconv.FormatInt(id, 10),
		Type: eventType,
		Data: dataBytes,
	})
	if err != nil {
		return err
	}

	topics := []string{TopicGlobal}
	if channelID != 0 {
		topics = append(topics, ChannelTopic(channelID))
	}

	for _, topic := range topics {
		h.sugar.Debugf("Sending %s event to those on topic %s", eventType, topic)

		if h.selfContained() {
			h.local.Publish(topic, message)
			continue
		}

		if err := h.redisClient.Publish(ctx, redisPrefix+topic, message).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Run relays events published in redis to the local clients until ctx is done.
// Without redis there is nothing to relay and it just waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.selfContained() {
		<-ctx.Done()
		return nil
	}

	pubsub := h.redisClient.PSubscribe(ctx, redisPrefix+"*")
	defer pubsub.Close()

	// wait for the subscription so nothing published after Run starts is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis events: %w", err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			topic := strings.TrimPrefix(msg.Channel, redisPrefix)
			h.local.Publish(topic, []byte(msg.Payload))
		}
	}
}
