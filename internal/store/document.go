package store

import (
	"messenger/internal/models"

	"github.com/samber/lo"
)

// document is the on-disk shape. The message field is "channel", not
// "channel_id", so files written by earlier versions keep loading.
type document struct {
	Users    []userRecord    `json:"users"`
	Channels []channelRecord `json:"channels"`
	Messages []messageRecord `json:"messages"`
}

type userRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type channelRecord struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Members []userRecord `json:"members"`
}

type messageRecord struct {
	SenderID  int    `json:"sender_id"`
	ChannelID int    `json:"channel"`
	Content   string `json:"content"`
}

// toState resolves channel members against the loaded users. Member ids that
// don't resolve are dropped.
func (d document) toState() state {
	users := lo.Map(d.Users, func(u userRecord, _ int) *models.User {
		return &models.User{ID: u.ID, Name: u.Name}
	})
	byID := lo.KeyBy(users, func(u *models.User) int { return u.ID })

	channels := lo.Map(d.Channels, func(c channelRecord, _ int) *channel {
		members := lo.FilterMap(c.Members, func(m userRecord, _ int) (*models.User, bool) {
			user, ok := byID[m.ID]
			return user, ok
		})
		return &channel{id: c.ID, name: c.Name, members: members}
	})

	messages := lo.Map(d.Messages, func(m messageRecord, _ int) models.Message {
		return models.Message{SenderID: m.SenderID, ChannelID: m.ChannelID, Content: m.Content}
	})

	return state{users: users, channels: channels, messages: messages}
}

func fromState(st state) document {
	toRecord := func(u *models.User, _ int) userRecord {
		return userRecord{ID: u.ID, Name: u.Name}
	}

	return document{
		Users: lo.Map(st.users, toRecord),
		Channels: lo.Map(st.channels, func(c *channel, _ int) channelRecord {
			return channelRecord{ID: c.id, Name: c.name, Members: lo.Map(c.members, toRecord)}
		}),
		Messages: lo.Map(st.messages, func(m models.Message, _ int) messageRecord {
			return messageRecord{SenderID: m.SenderID, ChannelID: m.ChannelID, Content: m.Content}
		}),
	}
}
