// Package tools parses the free-text tool directives avatars emit and
// dispatches them against the world.
package tools

import "strings"

// Call is a parsed tool directive. The concrete type carries the
// parameters; dispatch pattern-matches on it.
type Call interface {
	isCall()
}

// Move relocates the avatar to a named location.
type Move struct{ Location string }

// Take picks up an unheld item.
type Take struct{ Item string }

// Use invokes a held item, optionally on a target.
type Use struct{ Item, Target string }

// Drop releases a held item.
type Drop struct{ Item string }

// Read examines a location the avatar is standing in.
type Read struct{ Location string }

// Create conjures a new item in the avatar's location.
type Create struct{ Name, Description string }

// Unknown is any directive that doesn't match a tool, kept raw for the
// error message.
type Unknown struct{ Raw string }

func (Move) isCall()    {}
func (Take) isCall()    {}
func (Use) isCall()     {}
func (Drop) isCall()    {}
func (Read) isCall()    {}
func (Create) isCall()  {}
func (Unknown) isCall() {}

// Parse splits a directive into keyword and parameter and returns the
// matching call. Keywords are case-insensitive; parameters keep their case
// but lose surrounding quotes. Directives with a known keyword and an empty
// parameter still produce the typed call so dispatch can report what's
// missing.
func Parse(raw string) Call {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Unknown{Raw: raw}
	}

	keyword, param, _ := strings.Cut(trimmed, " ")
	param = cleanParam(param)

	switch strings.ToUpper(keyword) {
	case "MOVE", "GOTO":
		return Move{Location: param}
	case "TAKE":
		return Take{Item: param}
	case "USE":
		item, target := splitParam(param)
		return Use{Item: item, Target: target}
	case "DROP", "LEAVE":
		return Drop{Item: param}
	case "READ", "EXAMINE":
		return Read{Location: param}
	case "CREATE":
		name, description := splitParam(param)
		return Create{Name: name, Description: description}
	default:
		return Unknown{Raw: trimmed}
	}
}

// cleanParam trims whitespace and one layer of surrounding quotes.
func cleanParam(s string) string {
	s = strings.TrimSpace(s)
	for _, quote := range []string{`"`, `'`, "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// splitParam separates "item, target" style parameters.
func splitParam(s string) (string, string) {
	first, rest, found := strings.Cut(s, ",")
	if !found {
		return cleanParam(first), ""
	}
	return cleanParam(first), cleanParam(rest)
}
