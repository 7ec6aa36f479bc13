package pubsub

import "fmt"

// Channel naming for the chat system. Channels use Redis-style colon
// separated names; the Kafka driver maps them onto topics.
const (
	// ChannelChatNotify carries live-notification fan-out between instances.
	ChannelChatNotify = "%s:notify"
)

// Event types carried on the notify channel.
const (
	EventNewMessageInChat = "new_message_in_chat"
)

// ChatNotifyChannel returns the notify channel name under prefix.
func ChatNotifyChannel(prefix string) string {
	if prefix == "" {
		prefix = "chat"
	}
	return fmt.Sprintf(ChannelChatNotify, prefix)
}
