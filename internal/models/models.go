package models

// UnknownSender is shown for messages whose sender no longer exists.
const UnknownSender = "Unknown"

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Channel members are listed in join order.
type Channel struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Members []User `json:"members"`
}

// Message has no id of its own, it is identified by its position in the store.
// SenderName is resolved on read and never persisted.
type Message struct {
	SenderID   int    `json:"sender_id"`
	ChannelID  int    `json:"channel_id"`
	Content    string `json:"content"`
	SenderName string `json:"sender_name,omitempty"`
}
