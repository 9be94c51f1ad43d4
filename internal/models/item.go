package models

// Item is a world object an avatar can take, use and drop.
// TakenBy is empty while the item lies in a room; a held item's location is
// re-derived from its holder on each store sync.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	TakenBy     string `json:"taken_by,omitempty"`
	AvatarURL   string `json:"avatar,omitempty"`
}

// Held reports whether any avatar is carrying the item.
func (i *Item) Held() bool {
	return i.TakenBy != ""
}

// Room is a named place in the world with a flavour description.
type Room struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CharacterContext is the slow-moving narrative state the chronicler
// refreshes for each avatar: a dream, a memory and a journal entry.
type CharacterContext struct {
	Name    string `json:"name"`
	Dream   string `json:"dream,omitempty"`
	Memory  string `json:"memory,omitempty"`
	Journal string `json:"journal,omitempty"`
}
