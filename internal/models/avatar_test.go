package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRememberLocation(t *testing.T) {
	tests := []struct {
		name     string
		remember []string
		visit    string
		want     []string
	}{
		{"empty history", nil, "Forest", []string{"Forest"}},
		{"appends new", []string{"Forest"}, "Lake", []string{"Forest", "Lake"}},
		{"dedup moves to recent", []string{"Forest", "Lake", "Cave"}, "Forest", []string{"Lake", "Cave", "Forest"}},
		{"caps at five", []string{"A", "B", "C", "D", "E"}, "F", []string{"B", "C", "D", "E", "F"}},
		{"revisit under cap", []string{"A", "B", "C", "D", "E"}, "A", []string{"B", "C", "D", "E", "A"}},
		{"blank ignored", []string{"Forest"}, "", []string{"Forest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Avatar{Remember: tt.remember}
			a.RememberLocation(tt.visit)
			assert.Equal(t, tt.want, a.Remember)
			assert.LessOrEqual(t, len(a.Remember), RememberLimit)
		})
	}
}

func TestRememberLocationKeepsCurrent(t *testing.T) {
	// The current location must survive trimming even when it was the
	// oldest entry before the visit.
	a := &Avatar{Remember: []string{"Forest", "B", "C", "D", "E"}}
	a.RememberLocation("Forest")
	assert.Contains(t, a.Remember, "Forest")
	assert.Equal(t, "Forest", a.Remember[len(a.Remember)-1])
}

func TestRememberedLocationsIncludesCurrent(t *testing.T) {
	a := &Avatar{
		Remember: []string{"Forest", "Lake"},
		Location: &Location{Name: "Cave"},
	}
	assert.Equal(t, []string{"Forest", "Lake", "Cave"}, a.RememberedLocations())

	// Current location already remembered: no duplicate.
	a.Location = &Location{Name: "Lake"}
	assert.Equal(t, []string{"Forest", "Lake"}, a.RememberedLocations())
}

func TestLocationChannelThreadIDs(t *testing.T) {
	channel := &Location{ID: "c1", Name: "forest", Type: LocationChannel}
	assert.Equal(t, "c1", channel.ChannelID())
	assert.Equal(t, "", channel.ThreadID())

	thread := &Location{ID: "t1", Name: "forest-talk", Type: LocationThread, Parent: "c1"}
	assert.Equal(t, "c1", thread.ChannelID())
	assert.Equal(t, "t1", thread.ThreadID())
}
