// Package chatevents defines the events exchanged with the chat gateway.
package chatevents

// Inbound topics, published by the gateway.
const (
	MessageCreatedV1  = "discord.message.created.v1"
	MessageDeletedV1  = "discord.message.deleted.v1"
	ReactionAddedV1   = "discord.reaction.added.v1"
	ReactionRemovedV1 = "discord.reaction.removed.v1"
)

// Outbound topics, consumed by the gateway.
const (
	ReplyRequestedV1 = "tourney.reply.requested.v1"
)

// AttachmentV1 is a file on an inbound message. The gateway inlines the
// content of small files such as .ydk decks.
type AttachmentV1 struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Content  []byte `json:"content,omitempty"`
}

// MessageCreatedPayloadV1 is any message the bot can see. ServerID is empty
// for direct messages.
type MessageCreatedPayloadV1 struct {
	MessageID       string         `json:"message_id"`
	ChannelID       string         `json:"channel_id"`
	ServerID        string         `json:"server_id,omitempty"`
	AuthorID        string         `json:"author_id"`
	AuthorIsBot     bool           `json:"author_is_bot,omitempty"`
	Content         string         `json:"content"`
	Attachments     []AttachmentV1 `json:"attachments,omitempty"`
	MentionedUsers  []string       `json:"mentioned_users,omitempty"`
	MentionsBot     bool           `json:"mentions_bot,omitempty"`
	ChannelMentions []string       `json:"channel_mentions,omitempty"`
}

// Direct reports whether the message was sent in a DM channel.
func (p *MessageCreatedPayloadV1) Direct() bool {
	return p.ServerID == ""
}

type MessageDeletedPayloadV1 struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ServerID  string `json:"server_id,omitempty"`
}

// ReactionPayloadV1 is used for both added and removed reactions.
type ReactionPayloadV1 struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ServerID  string `json:"server_id,omitempty"`
	UserID    string `json:"user_id"`
	UserIsBot bool   `json:"user_is_bot,omitempty"`
	Emoji     string `json:"emoji"`
}

// ReplyRequestedPayloadV1 asks the gateway to answer a message in its channel.
type ReplyRequestedPayloadV1 struct {
	ChannelID string        `json:"channel_id"`
	ReplyTo   string        `json:"reply_to,omitempty"`
	Content   string        `json:"content"`
	File      *AttachmentV1 `json:"file,omitempty"`
}
