package events

// Event type constants, format: domain.action

// Message events
const (
	EventTypeMessageCreated = "message.created"
	EventTypeMessageUpdated = "message.updated"
	EventTypeMessageDeleted = "message.deleted"
	EventTypeMessagesRead   = "messages.read"
)

// Presence events (real-time only, not persisted)
const (
	EventTypePresenceJoined  = "presence.joined"
	EventTypePresenceLeft    = "presence.left"
	EventTypePresenceTyping  = "presence.typing"
	EventTypePresenceOnline  = "presence.online"
	EventTypePresenceOffline = "presence.offline"
)

// Redis channel prefixes
const (
	ChannelPrefixSession = "channel:session:"
	ChannelPrefixUser    = "channel:user:"
)

// SessionChannel returns the fan-out channel for a session room.
func SessionChannel(sessionID string) string {
	return ChannelPrefixSession + sessionID
}

// UserChannel returns the per-user channel.
func UserChannel(userID string) string {
	return ChannelPrefixUser + userID
}
