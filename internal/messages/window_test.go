package messages

import (
	"fmt"
	"testing"
	"time"

	"github.com/aviary-sim/aviary/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, author, disc, channel, content string, at time.Time) models.Message {
	return models.Message{
		ID:        id,
		Author:    models.Author{Username: author, Discriminator: disc},
		Content:   content,
		ChannelID: channel,
		CreatedAt: at,
	}
}

var windowLocations = []models.Location{
	{ID: "c1", Name: "Forest", Type: models.LocationChannel},
	{ID: "c2", Name: "Lake", Type: models.LocationChannel},
}

func TestBuildConversationOneTurnPerMessage(t *testing.T) {
	luna := &models.Avatar{Name: "Luna"}
	base := time.Now()
	msgs := []models.Message{
		msg("1", "alice", "", "c1", "hello", base),
		msg("2", "Luna", "0000", "c1", "greetings, traveler", base.Add(time.Second)),
		msg("3", "bob", "", "c2", "anyone here?", base.Add(2*time.Second)),
	}

	conv := BuildConversation(luna, msgs, windowLocations)
	require.Len(t, conv, len(msgs), "exactly one turn per message")

	assert.Equal(t, models.RoleUser, conv[0].Role)
	assert.Equal(t, "(Forest) alice: hello", conv[0].Content)
	assert.False(t, conv[0].Bot)

	// The avatar's own message becomes an assistant turn with raw content.
	assert.Equal(t, models.RoleAssistant, conv[1].Role)
	assert.Equal(t, "greetings, traveler", conv[1].Content)
	assert.True(t, conv[1].Bot)

	assert.Equal(t, "Lake", conv[2].Location)
}

func TestBuildConversationExactAuthorMatch(t *testing.T) {
	luna := &models.Avatar{Name: "Luna"}
	conv := BuildConversation(luna, []models.Message{
		msg("1", "Lunatic", "", "c1", "full moon tonight", time.Now()),
	}, windowLocations)
	require.Len(t, conv, 1)
	// "Lunatic" contains "Luna" but is not the avatar.
	assert.Equal(t, models.RoleUser, conv[0].Role)
}

func TestBuildConversationUnknownLocation(t *testing.T) {
	conv := BuildConversation(&models.Avatar{Name: "Luna"}, []models.Message{
		msg("1", "alice", "", "deleted-channel", "echo", time.Now()),
	}, windowLocations)
	require.Len(t, conv, 1)
	assert.Equal(t, "unknown location", conv[0].Location)
}

func TestShouldRespond(t *testing.T) {
	user := func(bot bool) models.Turn { return models.Turn{Role: models.RoleUser, Bot: bot} }
	assistant := models.Turn{Role: models.RoleAssistant, Bot: true}

	tests := []struct {
		name string
		conv []models.Turn
		want bool
	}{
		{"empty window", nil, false},
		{"avatar spoke last", []models.Turn{user(false), assistant}, false},
		{"human spoke last", []models.Turn{assistant, user(false)}, true},
		{"only bots recently", []models.Turn{user(true), user(true), user(true)}, false},
		{"human outside recent window", append([]models.Turn{user(false)}, user(true), user(true), user(true), user(true), user(true)), false},
		{"luna scenario: four bot turns then a human", []models.Turn{user(true), user(true), user(true), user(true), user(false)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRespond(tt.conv))
		})
	}
}

func TestShouldSummon(t *testing.T) {
	forest := &models.Location{ID: "c1", Name: "Forest"}
	mention := models.Message{ChannelID: "c2", Author: models.Author{Username: "alice"}}

	avatar := &models.Avatar{Name: "Luna", Summon: true, Owner: "alice", Location: forest}
	assert.True(t, ShouldSummon(avatar, mention))

	t.Run("not summonable", func(t *testing.T) {
		a := *avatar
		a.Summon = false
		assert.False(t, ShouldSummon(&a, mention))
	})
	t.Run("already there", func(t *testing.T) {
		assert.False(t, ShouldSummon(avatar, models.Message{ChannelID: "c1", Author: models.Author{Username: "alice"}}))
	})
	t.Run("not the owner", func(t *testing.T) {
		a := *avatar
		a.Owner = "bob"
		assert.False(t, ShouldSummon(&a, mention))
	})
	t.Run("host-owned avatars answer anyone", func(t *testing.T) {
		a := *avatar
		a.Owner = "host"
		assert.True(t, ShouldSummon(&a, mention))
	})
}

func TestSummonLocation(t *testing.T) {
	locations := []models.Location{
		{ID: "c1", Name: "Forest", Type: models.LocationChannel},
		{ID: "t1", Name: "Dock", Type: models.LocationThread, Parent: "c2"},
	}

	// Thread wins over channel.
	loc := SummonLocation(models.Message{ChannelID: "c1", ThreadID: "t1"}, locations)
	require.NotNil(t, loc)
	assert.Equal(t, "t1", loc.ID)

	// Channel match.
	loc = SummonLocation(models.Message{ChannelID: "c1"}, locations)
	require.NotNil(t, loc)
	assert.Equal(t, "c1", loc.ID)

	// Thread whose parent is the mention channel.
	loc = SummonLocation(models.Message{ChannelID: "c2"}, locations)
	require.NotNil(t, loc)
	assert.Equal(t, "t1", loc.ID)

	// Nothing matches: first location.
	loc = SummonLocation(models.Message{ChannelID: "zzz"}, locations)
	require.NotNil(t, loc)
	assert.Equal(t, "c1", loc.ID)
}

func TestConversationOrderPreserved(t *testing.T) {
	luna := &models.Avatar{Name: "Luna"}
	base := time.Now()
	var msgs []models.Message
	for i := 0; i < 6; i++ {
		msgs = append(msgs, msg(fmt.Sprint(i), "alice", "", "c1", fmt.Sprintf("line %d", i), base.Add(time.Duration(i)*time.Second)))
	}
	conv := BuildConversation(luna, msgs, windowLocations)
	for i, turn := range conv {
		assert.Contains(t, turn.Content, fmt.Sprintf("line %d", i))
	}
}
