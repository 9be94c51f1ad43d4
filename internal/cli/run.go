package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/aviary-sim/aviary/internal/chronicle"
	"github.com/aviary-sim/aviary/internal/directory"
	"github.com/aviary-sim/aviary/internal/engine"
	"github.com/aviary-sim/aviary/internal/llm"
	"github.com/aviary-sim/aviary/internal/messages"
	"github.com/aviary-sim/aviary/internal/metrics"
	"github.com/aviary-sim/aviary/internal/relay"
	"github.com/aviary-sim/aviary/internal/sim"
	"github.com/aviary-sim/aviary/internal/tasks"
	"github.com/aviary-sim/aviary/internal/tools"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation daemon",
	Long: `Run the avatar simulation until interrupted.

The daemon sweeps the roster every poll interval, runs each avatar's
response cycle, chronicles narrative state on a slow cadence, and
listens to the live message feed when one is configured.`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worldStore, err := getStore(ctx)
	if err != nil {
		return err
	}

	completer, err := newCompleter()
	if err != nil {
		return err
	}

	dir := directory.New(api, logger)
	msgs := messages.New(api, logger)
	queue := relay.New(api, logger)
	stats := metrics.NewCollector()

	dispatcher := tools.NewDispatcher(tools.Deps{
		Items:     worldStore,
		Directory: dir,
		Relay:     queue,
		Completer: completer,
		Logger:    logger,
	})

	eng := engine.New(completer, worldStore, dispatcher, queue, dir, stats, logger)
	chronicler := chronicle.New(dir, msgs, worldStore, completer, logger)

	var watcher sim.Watcher
	if cfg.FeedURL != "" {
		watcher = messages.NewWatcher(cfg.FeedURL, logger)
	}

	runner := sim.New(dir, msgs, eng, worldStore, chronicler, watcher, stats, logger, sim.Options{
		PollInterval:      cfg.PollInterval,
		TickTimeout:       cfg.AvatarTickTimeout,
		ChronicleInterval: cfg.ChronicleInterval,
	})

	logger.Info("aviary daemon starting",
		"api", cfg.APIBase,
		"poll_interval", cfg.PollInterval,
		"backend", backendName())

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("aviary daemon stopped")
		return nil
	}
	return err
}

// newCompleter picks the completion backend: a local langchaingo model when
// a provider is configured, the async task API otherwise.
func newCompleter() (llm.Completer, error) {
	if cfg.LLMProvider != "" {
		return llm.NewModel(cfg)
	}
	return tasks.New(api, cfg.TaskModel, cfg.TaskPollInterval, logger), nil
}

func backendName() string {
	if cfg.LLMProvider != "" {
		return cfg.LLMProvider + "/" + cfg.LLMModel
	}
	return "tasks/" + cfg.TaskModel
}
