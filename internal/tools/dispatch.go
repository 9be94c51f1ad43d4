package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aviary-sim/aviary/internal/llm"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/aviary-sim/aviary/internal/relay"
)

// ItemStore is the slice of the world store tool handlers need.
type ItemStore interface {
	Item(ctx context.Context, name string) (*models.Item, error)
	ItemsByLocation(ctx context.Context, location string) ([]models.Item, error)
	Take(ctx context.Context, avatarName, itemName string) (bool, error)
	Drop(ctx context.Context, avatarName, itemName string) (bool, error)
	CreateItem(ctx context.Context, item models.Item) (string, error)
	EnsureRoom(ctx context.Context, name string) (*models.Room, error)
}

// Mover resolves locations and persists avatar moves.
type Mover interface {
	Locations(ctx context.Context) ([]models.Location, error)
	UpdateAvatarLocation(ctx context.Context, avatar *models.Avatar) error
}

// Poster posts messages through the delivery relay.
type Poster interface {
	PostResponse(ctx context.Context, sender relay.Sender, message string) error
}

// Deps holds shared services for tool handlers.
type Deps struct {
	Items     ItemStore
	Directory Mover
	Relay     Poster
	Completer llm.Completer
	Logger    *slog.Logger
}

// Dispatcher executes parsed tool calls. Handler results are always
// strings: domain failures are data the avatar can react to, and even a
// handler error crosses the boundary as "Error: ..." rather than aborting a
// batch.
type Dispatcher struct {
	deps Deps
}

// NewDispatcher creates a dispatcher with injected dependencies.
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// Available lists the tool signatures for the selector prompt.
func Available() []string {
	return []string{
		"MOVE <location>",
		"TAKE <item>",
		"USE <item>[, <target>]",
		"DROP <item>",
		"READ <location>",
		"CREATE <name>, <description>",
	}
}

// Dispatch parses and executes one directive for the avatar.
func (d *Dispatcher) Dispatch(ctx context.Context, avatar *models.Avatar, raw string) string {
	d.deps.Logger.Info("calling tool", "avatar", avatar.Name, "tool", raw)

	var (
		result string
		err    error
	)
	switch call := Parse(raw).(type) {
	case Move:
		result, err = d.move(ctx, avatar, call)
	case Take:
		result, err = d.take(ctx, avatar, call)
	case Use:
		result, err = d.use(ctx, avatar, call)
	case Drop:
		result, err = d.drop(ctx, avatar, call)
	case Read:
		result, err = d.read(ctx, avatar, call)
	case Create:
		result, err = d.create(ctx, avatar, call)
	case Unknown:
		return fmt.Sprintf("Tool %q not found. Available tools are: %s",
			call.Raw, strings.Join(Available(), ", "))
	}
	if err != nil {
		d.deps.Logger.Error("tool failed", "avatar", avatar.Name, "tool", raw, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}

// DispatchAll executes a batch of directives, preserving input order in the
// results. Calls that touch the avatar run sequentially in input order: MOVE
// rewrites the location that READ, USE and CREATE dereference. Pure item
// calls stay concurrent; they only read the avatar's name, which no handler
// mutates. One failing call never aborts the others.
func (d *Dispatcher) DispatchAll(ctx context.Context, avatar *models.Avatar, directives []string) []string {
	results := make([]string, len(directives))
	var wg sync.WaitGroup
	var serial []int
	for i, directive := range directives {
		if touchesAvatar(Parse(directive)) {
			serial = append(serial, i)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.Dispatch(ctx, avatar, directive)
		}()
	}
	for _, i := range serial {
		results[i] = d.Dispatch(ctx, avatar, directives[i])
	}
	wg.Wait()
	return results
}

// touchesAvatar reports whether a call reads or writes the avatar's
// location state.
func touchesAvatar(call Call) bool {
	switch call.(type) {
	case Move, Read, Use, Create:
		return true
	}
	return false
}

func (d *Dispatcher) move(ctx context.Context, avatar *models.Avatar, call Move) (string, error) {
	if call.Location == "" {
		return "The MOVE tool needs a location.", nil
	}
	locations, err := d.deps.Directory.Locations(ctx)
	if err != nil {
		return "", err
	}
	destination := findLocationFold(locations, call.Location)
	if destination == nil {
		return fmt.Sprintf("Location %s not found.", call.Location), nil
	}
	avatar.Location = destination
	if err := d.deps.Directory.UpdateAvatarLocation(ctx, avatar); err != nil {
		return "", err
	}
	return fmt.Sprintf("I have moved to %s.", destination.Name), nil
}

func (d *Dispatcher) take(ctx context.Context, avatar *models.Avatar, call Take) (string, error) {
	if call.Item == "" {
		return "The TAKE tool needs an item.", nil
	}
	ok, err := d.deps.Items.Take(ctx, avatar.Name, call.Item)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("Failed to take %s.", call.Item), nil
	}
	return fmt.Sprintf("Item %s taken.", call.Item), nil
}

func (d *Dispatcher) drop(ctx context.Context, avatar *models.Avatar, call Drop) (string, error) {
	if call.Item == "" {
		return "The DROP tool needs an item.", nil
	}
	ok, err := d.deps.Items.Drop(ctx, avatar.Name, call.Item)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("Failed to drop %s.", call.Item), nil
	}
	return fmt.Sprintf("Item %s dropped.", call.Item), nil
}

// use has the item describe itself being used and posts that description to
// the avatar's location as if the item spoke.
func (d *Dispatcher) use(ctx context.Context, avatar *models.Avatar, call Use) (string, error) {
	if call.Item == "" {
		return "The USE tool needs an item.", nil
	}
	item, err := d.deps.Items.Item(ctx, call.Item)
	if err != nil {
		return "", err
	}
	if item == nil {
		return fmt.Sprintf("The %s does not exist.", call.Item), nil
	}
	if item.TakenBy != avatar.Name {
		return fmt.Sprintf("You do not have the %s.", item.Name), nil
	}

	target := call.Target
	if target == "" {
		target = avatar.Location.Name
	}
	stats, _ := json.Marshal(item)
	persona := llm.Persona{
		Name:        item.Name,
		Personality: fmt.Sprintf("You are the %s. %s", item.Name, item.Description),
	}
	description, err := d.deps.Completer.Complete(ctx, persona, []models.Turn{{
		Role: models.RoleUser,
		Content: fmt.Sprintf(
			"Here are your statistics:\n\n%s\n\ndescribe yourself being used by %s on %s in a SHORT whimsical sentence or *action*.",
			stats, avatar.Name, target),
	}})
	if err != nil {
		return "", err
	}

	if err := d.deps.Relay.PostResponse(ctx, relay.ItemSender(item, avatar.Location), description); err != nil {
		return "", err
	}
	return fmt.Sprintf("I have used the %s with the following effect:\n\n%s", item.Name, description), nil
}

// read lists the items present, but only from inside the named location.
func (d *Dispatcher) read(ctx context.Context, avatar *models.Avatar, call Read) (string, error) {
	if call.Location == "" {
		return "The READ tool needs a location.", nil
	}
	if avatar.Location == nil || !strings.EqualFold(avatar.Location.Name, call.Location) {
		return fmt.Sprintf("You are not in %s.", call.Location), nil
	}

	room, err := d.deps.Items.EnsureRoom(ctx, avatar.Location.Name)
	if err != nil {
		return "", err
	}
	items, err := d.deps.Items.ItemsByLocation(ctx, avatar.Location.Name)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return fmt.Sprintf("%s There are no items here.", room.Description), nil
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, room.Description)
	for _, item := range items {
		name := item.Name
		if item.Held() {
			name += fmt.Sprintf(" (held by %s)", item.TakenBy)
		}
		lines = append(lines, fmt.Sprintf("%s - %s", name, item.Description))
	}
	return strings.Join(lines, "\n"), nil
}

func (d *Dispatcher) create(ctx context.Context, avatar *models.Avatar, call Create) (string, error) {
	if call.Name == "" || call.Description == "" {
		return "The CREATE tool needs a name and a description.", nil
	}
	return d.deps.Items.CreateItem(ctx, models.Item{
		Name:        call.Name,
		Description: call.Description,
		Location:    avatar.Location.Name,
		AvatarURL:   "https://i.imgur.com/Oly9eGA.png",
	})
}

func findLocationFold(locations []models.Location, name string) *models.Location {
	for i := range locations {
		if strings.EqualFold(locations[i].Name, name) {
			return &locations[i]
		}
	}
	return nil
}
