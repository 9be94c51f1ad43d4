package models

// Location types as reported by the directory service.
const (
	LocationChannel  = "channel"
	LocationThread   = "thread"
	LocationCategory = "category"
	LocationVoice    = "voice"
)

// Location is a chat channel, thread or category that scopes which messages
// an avatar sees. Parent is the containing channel ID for threads.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Parent string `json:"parent,omitempty"`
}

// ChannelID returns the ID messages should be posted to: the parent channel
// for threads, the location itself otherwise.
func (l *Location) ChannelID() string {
	if l.Type == LocationThread {
		return l.Parent
	}
	return l.ID
}

// ThreadID returns the thread ID for thread locations, empty otherwise.
func (l *Location) ThreadID() string {
	if l.Type == LocationThread {
		return l.ID
	}
	return ""
}

// FindLocation returns the location with the given name, or nil.
func FindLocation(locations []Location, name string) *Location {
	for i := range locations {
		if locations[i].Name == name {
			return &locations[i]
		}
	}
	return nil
}

// FindLocationByID returns the location with the given ID, or nil.
func FindLocationByID(locations []Location, id string) *Location {
	for i := range locations {
		if locations[i].ID == id {
			return &locations[i]
		}
	}
	return nil
}
