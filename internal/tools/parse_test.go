package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Call
	}{
		{"move", "MOVE Forest", Move{Location: "Forest"}},
		{"goto alias", "GOTO Lake", Move{Location: "Lake"}},
		{"lowercase keyword", "move Forest", Move{Location: "Forest"}},
		{"take", "TAKE Lantern", Take{Item: "Lantern"}},
		{"take quoted", `TAKE "Moonlit Lantern"`, Take{Item: "Moonlit Lantern"}},
		{"use without target", "USE Lantern", Use{Item: "Lantern"}},
		{"use with target", "USE Lantern, Door", Use{Item: "Lantern", Target: "Door"}},
		{"drop", "DROP Lantern", Drop{Item: "Lantern"}},
		{"leave alias", "LEAVE Lantern", Drop{Item: "Lantern"}},
		{"read", "READ Forest", Read{Location: "Forest"}},
		{"examine alias", "EXAMINE Forest", Read{Location: "Forest"}},
		{"create", "CREATE Wand, a gnarled twig", Create{Name: "Wand", Description: "a gnarled twig"}},
		{"create keeps commas in description", "CREATE Wand, gnarled, mossy", Create{Name: "Wand", Description: "gnarled, mossy"}},
		{"surrounding whitespace", "  TAKE Lantern  ", Take{Item: "Lantern"}},
		{"missing param keeps type", "TAKE", Take{Item: ""}},
		{"unknown keyword", "DANCE wildly", Unknown{Raw: "DANCE wildly"}},
		{"empty", "", Unknown{Raw: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestCleanParam(t *testing.T) {
	assert.Equal(t, "Lantern", cleanParam(` "Lantern" `))
	assert.Equal(t, "Lantern", cleanParam("'Lantern'"))
	assert.Equal(t, `"half quoted`, cleanParam(`"half quoted`))
}
