// Package relay enqueues generated responses on the external delivery
// relay, which owns webhook management, chunking and actual delivery.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aviary-sim/aviary/internal/client"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/aviary-sim/aviary/internal/retry"
	"github.com/google/uuid"
)

const enqueuePath = "/discord/enqueue"

// Delivery retry knobs: three attempts, one second apart.
const (
	maxRetries = 3
	retryDelay = time.Second
)

// poster is the slice of the API client the queue needs.
type poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Sender is the identity a message is posted under. Items speak through the
// relay too when used, so this is broader than Avatar.
type Sender struct {
	Name      string
	Emoji     string
	AvatarURL string
	Location  *models.Location
}

// SenderFor returns the delivery identity of an avatar.
func SenderFor(a *models.Avatar) Sender {
	return Sender{Name: a.Name, Emoji: a.Emoji, Location: a.Location}
}

// ItemSender returns the delivery identity of an item speaking from a
// location.
func ItemSender(item *models.Item, location *models.Location) Sender {
	return Sender{Name: item.Name, AvatarURL: item.AvatarURL, Location: location}
}

type enqueueAvatar struct {
	Name      string `json:"name"`
	Emoji     string `json:"emoji,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	ChannelID string `json:"channelId"`
	ThreadID  string `json:"threadId,omitempty"`
}

type enqueueData struct {
	Avatar  enqueueAvatar `json:"avatar"`
	Message string        `json:"message"`
}

type enqueueRequest struct {
	Action string      `json:"action"`
	Data   enqueueData `json:"data"`

	// IdempotencyKey is stable across retries of one logical send so the
	// relay can drop duplicates when an ack is lost.
	IdempotencyKey string `json:"idempotencyKey"`
}

// Queue posts responses through the delivery relay with retries.
type Queue struct {
	api    poster
	policy retry.Policy
	log    *slog.Logger
	newKey func() string
}

// New creates a delivery queue.
func New(api *client.Client, log *slog.Logger) *Queue {
	return &Queue{
		api:    api,
		policy: retry.Fixed(maxRetries, retryDelay),
		log:    log,
		newKey: func() string { return uuid.New().String() },
	}
}

// PostResponse enqueues a message under the sender's identity. Thread
// locations post to the parent channel with the thread ID set. The last
// transport error surfaces after retries are exhausted.
func (q *Queue) PostResponse(ctx context.Context, sender Sender, message string) error {
	if sender.Location == nil {
		return fmt.Errorf("sender %s has no location", sender.Name)
	}

	req := enqueueRequest{
		Action: "sendAsAvatar",
		Data: enqueueData{
			Avatar: enqueueAvatar{
				Name:      sender.Name,
				Emoji:     sender.Emoji,
				Avatar:    sender.AvatarURL,
				ChannelID: sender.Location.ChannelID(),
				ThreadID:  sender.Location.ThreadID(),
			},
			Message: message,
		},
		IdempotencyKey: q.newKey(),
	}

	q.log.Info("avatar responds", "avatar", sender.Name, "emoji", sender.Emoji,
		"location", sender.Location.Name)

	err := q.policy.Do(ctx, func(ctx context.Context) error {
		return q.api.Post(ctx, enqueuePath, req, nil)
	})
	if err != nil {
		return fmt.Errorf("enqueue response for %s: %w", sender.Name, err)
	}
	return nil
}
