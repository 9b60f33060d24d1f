package hub

const (
	UserCreated = "UserCreated"
	UserBanned  = "UserBanned"

	ChannelCreated = "ChannelCreated"
	ChannelBanned  = "ChannelBanned"
	MemberJoined   = "MemberJoined"

	MessagePosted = "MessagePosted"
)

// TopicGlobal receives every event.
const TopicGlobal = "global"
