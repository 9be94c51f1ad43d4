package messages

import (
	"fmt"

	"github.com/aviary-sim/aviary/internal/models"
)

// recentWindow is how far back ShouldRespond looks for signs of life.
const recentWindow = 5

// BuildConversation maps messages onto conversation turns for the avatar.
// A message is an assistant turn iff its author name equals the avatar's
// name exactly; substring matching would let "Luna" claim "Lunatic"'s words.
// User turns are tagged with their resolved location so the avatar knows
// where each voice is speaking from.
func BuildConversation(avatar *models.Avatar, msgs []models.Message, locations []models.Location) []models.Turn {
	conversation := make([]models.Turn, 0, len(msgs))
	for _, msg := range msgs {
		author := msg.Author.Name()
		locationName := "unknown location"
		if loc := models.FindLocationByID(locations, msg.ChannelID); loc != nil {
			locationName = loc.Name
		}

		turn := models.Turn{
			Author:   author,
			Location: locationName,
			Bot:      msg.Author.Bot(),
		}
		if author == avatar.Name {
			turn.Role = models.RoleAssistant
			turn.Content = msg.Content
		} else {
			turn.Role = models.RoleUser
			turn.Content = fmt.Sprintf("(%s) %s: %s", locationName, author, msg.Content)
		}
		conversation = append(conversation, turn)
	}
	return conversation
}

// ShouldRespond reports whether the conversation warrants a response at all:
// the recent window must contain at least one non-bot turn, and the very
// last turn must be a user turn (the avatar has not already spoken last).
func ShouldRespond(conversation []models.Turn) bool {
	if len(conversation) == 0 {
		return false
	}
	if conversation[len(conversation)-1].Role != models.RoleUser {
		return false
	}

	recent := conversation
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	for _, turn := range recent {
		if !turn.Bot {
			return true
		}
	}
	return false
}

// ShouldSummon reports whether a mention should pull the avatar to its
// location: the avatar must be summonable, the mention must come from
// elsewhere, and the mention author must be the avatar's owner (or the
// owner must be "host", which lets anyone summon).
func ShouldSummon(avatar *models.Avatar, mention models.Message) bool {
	if !avatar.Summon || avatar.Location == nil {
		return false
	}
	if avatar.Location.ID == mention.ChannelID || avatar.Location.ID == mention.ThreadID {
		return false
	}
	return avatar.Owner == "host" || avatar.Owner == mention.Author.Name()
}

// SummonLocation resolves where a mention should move the avatar: the
// thread if known, else the channel (or a thread's parent), else the first
// location.
func SummonLocation(mention models.Message, locations []models.Location) *models.Location {
	if loc := models.FindLocationByID(locations, mention.ThreadID); loc != nil {
		return loc
	}
	if loc := models.FindLocationByID(locations, mention.ChannelID); loc != nil {
		return loc
	}
	for i := range locations {
		if locations[i].Parent == mention.ChannelID {
			return &locations[i]
		}
	}
	if len(locations) > 0 {
		return &locations[0]
	}
	return nil
}
