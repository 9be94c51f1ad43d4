package models

import "time"

// BotDiscriminator marks webhook-authored messages on the chat surface.
const BotDiscriminator = "0000"

// Author identifies who wrote a message.
type Author struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
}

// Name returns the display name, falling back to the username.
func (a Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// Bot reports whether the message came from a bot or webhook.
func (a Author) Bot() bool {
	return a.Discriminator == BotDiscriminator
}

// Message is a single chat message. Immutable once created; the core only
// writes new avatar-authored content through the delivery relay.
type Message struct {
	ID        string    `json:"_id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	ChannelID string    `json:"channelId"`
	ThreadID  string    `json:"threadId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a conversation window, derived from a Message each
// response cycle and never persisted.
type Turn struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Author   string `json:"-"`
	Location string `json:"-"`
	Bot      bool   `json:"-"`
}
