// Package engine decides whether an avatar speaks and produces its reply:
// gate, haiku decision, tool selection, generation, delivery.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aviary-sim/aviary/internal/llm"
	"github.com/aviary-sim/aviary/internal/metrics"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/aviary-sim/aviary/internal/relay"
	"github.com/aviary-sim/aviary/internal/tools"
)

const (
	// decideWindow is how many trailing turns feed the haiku decision and
	// its suppression hash.
	decideWindow = 10
	// toolWindow is how many trailing turns the tool selector sees.
	toolWindow = 5
	// generateWindow is how many trailing turns the final reply sees.
	generateWindow = 25

	// suppressFor is how long an unchanged conversation tail stays decided.
	suppressFor = 5 * time.Minute
)

// Outcome of one response attempt, for metrics and logging.
type Outcome string

const (
	OutcomeResponded  Outcome = "responded"
	OutcomeSilent     Outcome = "silent"
	OutcomeDeclined   Outcome = "declined"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeSkipped    Outcome = "skipped"
)

// itemStore is the slice of the world store the engine reads.
type itemStore interface {
	ItemsByHolder(ctx context.Context, holder string) ([]models.Item, error)
}

// dispatcher executes tool directives.
type dispatcher interface {
	DispatchAll(ctx context.Context, avatar *models.Avatar, directives []string) []string
}

// deliverer posts generated replies.
type deliverer interface {
	PostResponse(ctx context.Context, sender relay.Sender, message string) error
}

// scheduler persists decision back-off hints.
type scheduler interface {
	SaveNextCheck(ctx context.Context, avatar *models.Avatar, next time.Time)
}

// Engine runs the response pipeline for one avatar at a time. The
// conversation-hash suppression cache lives on the struct, guarded by a
// mutex so concurrent callers stay correct.
type Engine struct {
	completer llm.Completer
	items     itemStore
	tools     dispatcher
	relay     deliverer
	schedule  scheduler
	stats     *metrics.Collector
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	checked map[string]time.Time
}

// New creates a response engine.
func New(completer llm.Completer, items itemStore, tools dispatcher, relay deliverer, schedule scheduler, stats *metrics.Collector, log *slog.Logger) *Engine {
	return &Engine{
		completer: completer,
		items:     items,
		tools:     tools,
		relay:     relay,
		schedule:  schedule,
		stats:     stats,
		log:       log,
		now:       time.Now,
		checked:   make(map[string]time.Time),
	}
}

// Respond runs one full pipeline pass for the avatar over the conversation.
// A non-nil error means the tick was abandoned; the next sweep starts from
// scratch, no partial state persists beyond next_check and the hash cache.
func (e *Engine) Respond(ctx context.Context, avatar *models.Avatar, conversation []models.Turn) (Outcome, error) {
	switch e.gate(ctx, avatar, conversation) {
	case OutcomeSkipped:
		return OutcomeSkipped, nil
	case OutcomeSuppressed:
		e.stats.RecordOutcome(metrics.OutcomeSuppressed)
		e.schedule.SaveNextCheck(ctx, avatar, e.now().Add(suppressFor))
		return OutcomeSuppressed, nil
	case OutcomeDeclined:
		e.stats.RecordOutcome(metrics.OutcomeDeclined)
		e.schedule.SaveNextCheck(ctx, avatar, e.now().Add(suppressFor))
		return OutcomeDeclined, nil
	}

	e.log.Info("responding", "avatar", avatar.Name, "location", avatar.Location.Name)

	held, err := e.items.ItemsByHolder(ctx, avatar.Name)
	if err != nil {
		return "", fmt.Errorf("list held items: %w", err)
	}

	toolResults := e.runTools(ctx, avatar, conversation, held)

	reply, err := e.generate(ctx, avatar, conversation, held, toolResults)
	if err != nil {
		return "", err
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return OutcomeSilent, nil
	}

	start := e.now()
	if err := e.relay.PostResponse(ctx, relay.SenderFor(avatar), reply); err != nil {
		return "", err
	}
	e.stats.RecordTiming(metrics.OpDelivery, e.now().Sub(start))
	e.stats.RecordOutcome(metrics.OutcomeResponded)
	return OutcomeResponded, nil
}

// gate decides whether the pipeline proceeds. The avatar never answers
// itself; a human last turn always proceeds; a bot last turn goes through
// the haiku decision unless the force flag is set, which requires a human
// last turn instead of bypassing everything.
func (e *Engine) gate(ctx context.Context, avatar *models.Avatar, conversation []models.Turn) Outcome {
	if len(conversation) == 0 {
		return OutcomeSkipped
	}
	last := conversation[len(conversation)-1]
	if last.Role == models.RoleAssistant {
		return OutcomeSkipped
	}
	if avatar.Force {
		if last.Bot {
			return OutcomeSkipped
		}
		return OutcomeResponded
	}
	if !last.Bot {
		return OutcomeResponded
	}
	return e.decide(ctx, avatar, conversation)
}

// decide is the haiku gate over the last decideWindow turns. The hash
// timestamp is recorded after judging regardless of the answer, so an
// unchanged tail is evaluated at most once per suppression window.
func (e *Engine) decide(ctx context.Context, avatar *models.Avatar, conversation []models.Turn) Outcome {
	recent := tail(conversation, decideWindow)
	hash := hashTurns(recent)

	if e.recentlyChecked(hash) {
		e.log.Debug("conversation unchanged, suppressing", "avatar", avatar.Name)
		return OutcomeSuppressed
	}

	start := e.now()
	defer func() { e.stats.RecordTiming(metrics.OpGate, e.now().Sub(start)) }()

	haiku, ok := llm.Run(ctx, e.completer, llm.PersonaFor(avatar), withPrompt(recent,
		"Write a haiku to decide if you should respond."), e.log)
	if !ok {
		return OutcomeDeclined
	}
	e.log.Info("haiku", "avatar", avatar.Name, "haiku", haiku)

	judge := llm.Persona{Name: "judge", Personality: "You are an excellent judge of intention"}
	verdict, ok := llm.Run(ctx, e.completer, judge, []models.Turn{{
		Role: models.RoleUser,
		Content: fmt.Sprintf(
			"As %s,\nI reflect on my purpose and write this haiku to decide whether to respond.\n\n%s\n\nAnswer with YES or NO depending on the message of the haiku.",
			avatar.Name, haiku),
	}}, e.log)

	e.markChecked(hash)

	if !ok || !strings.Contains(strings.ToLower(verdict), "yes") {
		e.log.Info("declined to respond", "avatar", avatar.Name, "verdict", verdict)
		return OutcomeDeclined
	}
	return OutcomeResponded
}

// runTools asks the selector persona for tool calls and dispatches them.
// Selector failures degrade to no tools; a response can still go out.
func (e *Engine) runTools(ctx context.Context, avatar *models.Avatar, conversation []models.Turn, held []models.Item) []string {
	names := make([]string, len(held))
	for i, item := range held {
		names[i] = item.Name
	}

	prompt := fmt.Sprintf(`You have these items:

%s

You can perform these functions:

%s

Respond with the tool call for each function you want to use.
Separate each tool call with a new line.
If no tool is relevant, return NONE.`,
		strings.Join(names, "\n"), strings.Join(tools.Available(), "\n"))

	selector := llm.Persona{
		Name:        avatar.Name,
		Personality: "You are a precise tool selector. Respond only with a tool call or NONE.",
	}
	selection, ok := llm.Run(ctx, e.completer, selector, withPrompt(tail(conversation, toolWindow), prompt), e.log)
	if !ok || strings.EqualFold(strings.TrimSpace(selection), "NONE") {
		return nil
	}

	var directives []string
	for _, line := range strings.Split(selection, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			directives = append(directives, line)
		}
	}
	if len(directives) == 0 {
		return nil
	}

	start := e.now()
	results := e.tools.DispatchAll(ctx, avatar, directives)
	e.stats.RecordTiming(metrics.OpTools, e.now().Sub(start))
	return results
}

// generate produces the final reply over the last generateWindow turns with
// items and tool results folded in as context.
func (e *Engine) generate(ctx context.Context, avatar *models.Avatar, conversation []models.Turn, held []models.Item, toolResults []string) (string, error) {
	recent := tail(conversation, generateWindow)
	turns := make([]models.Turn, 0, len(recent)+2)
	turns = append(turns, recent...)

	if len(held) > 0 || len(toolResults) > 0 {
		items, _ := json.Marshal(held)
		results, _ := json.Marshal(toolResults)
		turns = append(turns, models.Turn{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("You have the following items: %s.\nYou have used the following tools: %s.", items, results),
		})
	}

	style := avatar.ResponseStyle
	if style == "" {
		style = "Generate a response."
	}
	turns = append(turns, models.Turn{Role: models.RoleUser, Content: style})

	start := e.now()
	reply, err := e.completer.Complete(ctx, llm.PersonaFor(avatar), turns)
	if err != nil {
		return "", fmt.Errorf("generate response for %s: %w", avatar.Name, err)
	}
	e.stats.RecordTiming(metrics.OpCompletion, e.now().Sub(start))

	return stripSelfTag(avatar, reply), nil
}

// stripSelfTag removes the avatar's own "(location) Name" prefix when the
// model narrates itself in the conversation-window format.
func stripSelfTag(avatar *models.Avatar, reply string) string {
	if avatar.Location == nil {
		return reply
	}
	tag := fmt.Sprintf("(%s) %s", avatar.Location.Name, avatar.Name)
	if rest, found := strings.CutPrefix(reply, tag); found {
		return strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	return reply
}

// recentlyChecked reports whether the hash was evaluated within the
// suppression window, pruning expired entries as it goes.
func (e *Engine) recentlyChecked(hash string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for h, at := range e.checked {
		if now.Sub(at) >= suppressFor {
			delete(e.checked, h)
		}
	}

	at, ok := e.checked[hash]
	return ok && now.Sub(at) < suppressFor
}

func (e *Engine) markChecked(hash string) {
	e.mu.Lock()
	e.checked[hash] = e.now()
	e.mu.Unlock()
}

// hashTurns digests the role/content serialization of the turns. Only the
// wire fields participate, so annotations like Bot never perturb the hash.
func hashTurns(turns []models.Turn) string {
	data, _ := json.Marshal(turns)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func tail(turns []models.Turn, n int) []models.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// withPrompt copies the turns and appends a user prompt, never growing into
// the caller's backing array.
func withPrompt(turns []models.Turn, prompt string) []models.Turn {
	out := make([]models.Turn, 0, len(turns)+1)
	out = append(out, turns...)
	return append(out, models.Turn{Role: models.RoleUser, Content: prompt})
}
