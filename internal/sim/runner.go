// Package sim drives the simulation: a polling sweep over all avatars, each
// getting one response cycle per tick, plus the chronicler and the live
// message feed.
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aviary-sim/aviary/internal/chronicle"
	"github.com/aviary-sim/aviary/internal/engine"
	"github.com/aviary-sim/aviary/internal/messages"
	"github.com/aviary-sim/aviary/internal/metrics"
	"github.com/aviary-sim/aviary/internal/models"
)

// snapshotEvery is the cadence of the periodic metrics log line.
const snapshotEvery = 5 * time.Minute

// roster is the slice of the directory the runner needs.
type roster interface {
	InitializeAvatars(ctx context.Context) ([]*models.Avatar, []models.Location, error)
	UpdateAvatarLocation(ctx context.Context, avatar *models.Avatar) error
}

// fetcher reads conversation windows and mentions.
type fetcher interface {
	Fetch(ctx context.Context, avatar *models.Avatar, locations []models.Location, mark messages.Mark) ([]models.Message, error)
	Mentions(ctx context.Context, name, since string) ([]models.Message, error)
}

// responder runs one response pipeline pass.
type responder interface {
	Respond(ctx context.Context, avatar *models.Avatar, conversation []models.Turn) (engine.Outcome, error)
}

// itemSyncer re-derives held item locations from their holders.
type itemSyncer interface {
	SyncItemLocations(ctx context.Context, holders map[string]string) error
}

// Watcher delivers live message feed events. Optional; a nil watcher means
// pure polling.
type Watcher interface {
	Watch(ctx context.Context) <-chan messages.Event
}

// Options tune the runner's cadences.
type Options struct {
	PollInterval      time.Duration
	TickTimeout       time.Duration
	ChronicleInterval time.Duration
}

// Runner owns the sweep loop and all per-avatar polling state: high-water
// marks and in-flight tokens live here, not in globals.
type Runner struct {
	directory  roster
	msgs       fetcher
	engine     responder
	world      itemSyncer
	chronicler *chronicle.Chronicler
	watcher    Watcher
	stats      *metrics.Collector
	log        *slog.Logger
	opts       Options
	now        func() time.Time

	mu       sync.Mutex
	marks    map[string]messages.Mark
	inflight map[string]struct{}
}

// New creates a runner. The chronicler and watcher are optional; the sweep
// works without them.
func New(directory roster, msgs fetcher, eng responder, world itemSyncer, chronicler *chronicle.Chronicler, watcher Watcher, stats *metrics.Collector, log *slog.Logger, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = 5 * time.Minute
	}
	return &Runner{
		directory:  directory,
		msgs:       msgs,
		engine:     eng,
		world:      world,
		chronicler: chronicler,
		watcher:    watcher,
		stats:      stats,
		log:        log,
		opts:       opts,
		now:        time.Now,
		marks:      make(map[string]messages.Mark),
		inflight:   make(map[string]struct{}),
	}
}

// Run sweeps until the context ends. Watcher events cut the poll sleep
// short; the chronicler runs on its own cadence in the background.
func (r *Runner) Run(ctx context.Context) error {
	if r.chronicler != nil {
		go func() {
			r.chronicler.UpdateAll(ctx)
			r.chronicler.Run(ctx, r.opts.ChronicleInterval)
		}()
	}

	var wake <-chan messages.Event
	if r.watcher != nil {
		wake = r.watcher.Watch(ctx)
	}

	lastSnapshot := r.now()
	for {
		r.Sweep(ctx)

		if r.now().Sub(lastSnapshot) >= snapshotEvery {
			r.logSnapshot()
			lastSnapshot = r.now()
		}

		timer := time.NewTimer(r.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logSnapshot()
			return ctx.Err()
		case <-timer.C:
		case ev, ok := <-wake:
			timer.Stop()
			if ok {
				r.log.Debug("woken by message feed", "channel", ev.ChannelID)
			}
		}
	}
}

// Sweep reloads the roster and runs one response cycle per avatar,
// sequentially. A failing avatar never stops the sweep.
func (r *Runner) Sweep(ctx context.Context) {
	start := r.now()
	defer func() { r.stats.RecordTiming(metrics.OpSweep, r.now().Sub(start)) }()

	avatars, locations, err := r.directory.InitializeAvatars(ctx)
	if err != nil {
		r.log.Error("sweep skipped, roster unavailable", "error", err)
		return
	}

	holders := make(map[string]string, len(avatars))
	for _, avatar := range avatars {
		if !r.acquire(avatar.Name) {
			r.log.Debug("cycle still in flight, skipping", "avatar", avatar.Name)
			continue
		}

		tickCtx, cancel := context.WithTimeout(ctx, r.opts.TickTimeout)
		if err := r.processAvatar(tickCtx, avatar, locations); err != nil {
			r.stats.RecordOutcome(metrics.OutcomeError)
			r.log.Error("avatar cycle failed", "avatar", avatar.Name, "error", err)
		}
		cancel()
		r.release(avatar.Name)

		if avatar.Location != nil {
			holders[avatar.Name] = avatar.Location.Name
		}

		if ctx.Err() != nil {
			return
		}
	}

	if err := r.world.SyncItemLocations(ctx, holders); err != nil {
		r.log.Error("failed to sync item locations", "error", err)
	}
}

// processAvatar runs one avatar's tick: summon handling from mentions, the
// conversation fetch, and the response pipeline. The high-water mark
// advances past everything fetched so the next tick starts fresh.
func (r *Runner) processAvatar(ctx context.Context, avatar *models.Avatar, locations []models.Location) error {
	mark := r.mark(avatar.Name)

	mentions, err := r.msgs.Mentions(ctx, avatar.Name, mark.ID)
	if err != nil {
		// Mentions only drive summoning; the tick proceeds without them.
		r.log.Warn("mentions unavailable", "avatar", avatar.Name, "error", err)
		mentions = nil
	}
	if len(mentions) > 0 {
		latest := mentions[len(mentions)-1]
		if messages.ShouldSummon(avatar, latest) {
			if loc := messages.SummonLocation(latest, locations); loc != nil {
				avatar.Location = loc
				if err := r.directory.UpdateAvatarLocation(ctx, avatar); err != nil {
					return err
				}
			}
		}
	} else if !avatar.NextCheck.IsZero() && r.now().Before(avatar.NextCheck) {
		// The decision gate asked for a back-off and nothing new demands
		// attention.
		return nil
	}

	fetched, err := r.msgs.Fetch(ctx, avatar, locations, mark)
	if err != nil {
		return err
	}
	if len(fetched) == 0 {
		return nil
	}

	conversation := messages.BuildConversation(avatar, fetched, locations)
	var respondErr error
	if messages.ShouldRespond(conversation) {
		_, respondErr = r.engine.Respond(ctx, avatar, conversation)
	}

	// Fetched messages count as seen even when the avatar stays silent,
	// or an unchanged room would be reprocessed every tick.
	r.setMark(avatar.Name, messages.Advance(mark, fetched))

	return respondErr
}

func (r *Runner) mark(name string) messages.Mark {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.marks[name]
}

func (r *Runner) setMark(name string, mark messages.Mark) {
	r.mu.Lock()
	r.marks[name] = mark
	r.mu.Unlock()
}

// acquire takes the avatar's in-flight token. The sweep is sequential
// today; the token keeps a future fan-out or watcher-driven wake from
// overlapping cycles for one avatar.
func (r *Runner) acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[name]; busy {
		return false
	}
	r.inflight[name] = struct{}{}
	return true
}

func (r *Runner) release(name string) {
	r.mu.Lock()
	delete(r.inflight, name)
	r.mu.Unlock()
}

func (r *Runner) logSnapshot() {
	snap := r.stats.Snapshot()
	r.log.Info("simulation stats",
		"uptime_s", int64(snap.UptimeSeconds),
		"responded", snap.Responded,
		"declined", snap.Declined,
		"suppressed", snap.Suppressed,
		"errors", snap.Errors)
}
