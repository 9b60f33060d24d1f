package hub

import (
	"fmt"
	"sync"
)

func ChannelTopic(channelID int) string {
	return fmt.Sprintf("channel:%d", channelID)
}

type LocalPubSub struct {
	mutex   sync.RWMutex
	hashMap map[string][]*Client
}

func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{hashMap: make(map[string][]*Client)}
}

func (ps *LocalPubSub) Subscribe(topic string, client *Client) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.hashMap[topic] = append(ps.hashMap[topic], client)
}

func (ps *LocalPubSub) Unsubscribe(topic string, client *Client) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	clients := ps.hashMap[topic]

	// this won't run in case topic doesn't exist since length will be 0
	for i := range clients {
		if clients[i] == client {
			clients[i] = clients[len(clients)-1]
			ps.hashMap[topic] = clients[:len(clients)-1]
			break
		}
	}

	// delete topic from map if nobody is subscribed to it
	if len(ps.hashMap[topic]) == 0 {
		delete(ps.hashMap, topic)
	}
}

// Publish hands message to every client subscribed to topic and returns how
// many got it. A client whose send buffer is full misses the message.
func (ps *LocalPubSub) Publish(topic string, message []byte) int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	delivered := 0
	for _, client := range ps.hashMap[topic] {
		select {
		case client.send <- message:
			delivered++
		default:
		}
	}
	return delivered
}

func (ps *LocalPubSub) count() int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	total := 0
	for _, clients := range ps.hashMap {
		total += len(clients)
	}
	return total
}
