// Package models defines data structures for the Aviary world simulation.
package models

import "time"

// RememberLimit bounds how many recently visited locations an avatar keeps.
const RememberLimit = 5

// Avatar is a simulated persona bound to a location in the world.
//
// The directory service stores the location as a plain channel name; Location
// holds the resolved record once the roster has been initialized. Remember is
// the bounded history of recently visited location names, most recent last.
type Avatar struct {
	ID            string   `json:"_id,omitempty"`
	Name          string   `json:"name"`
	Emoji         string   `json:"emoji,omitempty"`
	Personality   string   `json:"personality"`
	ResponseStyle string   `json:"response_style,omitempty"`
	LocationName  string   `json:"location"`
	Remember      []string `json:"remember,omitempty"`
	Force         bool     `json:"force,omitempty"`
	Summon        bool     `json:"summon,omitempty"`
	Owner         string   `json:"owner,omitempty"`

	// NextCheck is persisted so external schedulers can back off while the
	// decision gate is suppressing a static conversation.
	NextCheck time.Time `json:"next_check,omitempty"`

	// Location is the resolved directory record, never persisted directly.
	Location *Location `json:"-"`
}

// RememberLocation folds a location name into the remembered set.
// The name moves to the most-recent slot, duplicates are removed and the
// history is trimmed from the front to RememberLimit entries. The current
// location therefore always survives trimming.
func (a *Avatar) RememberLocation(name string) {
	if name == "" {
		return
	}
	kept := make([]string, 0, len(a.Remember)+1)
	for _, loc := range a.Remember {
		if loc != name {
			kept = append(kept, loc)
		}
	}
	kept = append(kept, name)
	if len(kept) > RememberLimit {
		kept = kept[len(kept)-RememberLimit:]
	}
	a.Remember = kept
}

// RememberedLocations returns the remembered names plus the current location,
// deduplicated, in visit order.
func (a *Avatar) RememberedLocations() []string {
	seen := make(map[string]bool, len(a.Remember)+1)
	names := make([]string, 0, len(a.Remember)+1)
	for _, loc := range a.Remember {
		if loc != "" && !seen[loc] {
			seen[loc] = true
			names = append(names, loc)
		}
	}
	if a.Location != nil && a.Location.Name != "" && !seen[a.Location.Name] {
		names = append(names, a.Location.Name)
	}
	return names
}
