// turnkeyd - Global hotkey bridge between terminal sessions and sinks
//
// turnkeyd grabs a small set of global X11 hotkeys, resolves which
// registered terminal session owns the focused window, and moves that
// session's latest turn to a file sink, the system clipboard, or back
// into the session as a paste. Deliveries are journaled to SQLite.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"turnkeyd/internal/config"
	"turnkeyd/internal/focus"
	"turnkeyd/internal/hotkey"
	"turnkeyd/internal/journal"
	"turnkeyd/internal/logging"
	"turnkeyd/internal/notify"
	"turnkeyd/internal/registry"
	"turnkeyd/internal/sink"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/turnkeyd/config.toml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "turnkeyd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)

	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	if err := os.MkdirAll(cfg.Sinks.Directory, 0o700); err != nil {
		return fmt.Errorf("create sink directory: %w", err)
	}

	client := newRegistryClient(cfg)

	provider, err := hotkey.NewX11Provider(logger.WithComponent("hotkey"))
	if err != nil {
		return fmt.Errorf("connect to display: %w", err)
	}
	defer provider.Close()

	var notifier *notify.Notifier
	if cfg.Notify.Enabled {
		notifier, err = notify.New()
		if err != nil {
			logger.Warn("desktop notifications unavailable", "error", err)
			notifier = nil
		} else {
			defer notifier.Close()
		}
	}

	b := &broker{
		client:    client,
		resolver:  focus.NewResolver(provider.PIDSource()),
		journal:   jrnl,
		notifier:  notifier,
		clipboard: sink.SystemClipboard,
		sinkDir:   cfg.Sinks.Directory,
		notify:    cfg.Notify.Enabled,
		logger:    logger.WithComponent("broker"),
	}

	capture, paste, clipboard := bindings(cfg)
	reg, err := provider.Register(capture, paste, clipboard)
	if err != nil {
		return fmt.Errorf("register hotkeys: %w", err)
	}
	if reg.BindingsOK == 0 {
		return fmt.Errorf("no hotkey binding could be grabbed; another client may hold them")
	}
	logger.Info("hotkeys registered", "ok", reg.BindingsOK)

	reloads := make(chan *config.Config, 1)
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		logger.Warn("config watching disabled", "error", err)
	} else {
		defer watcher.Close()
		watcher.OnChange(func(next *config.Config) {
			select {
			case reloads <- next:
			default:
			}
		})
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)

	logger.Info("turnkeyd running",
		"registry", cfg.Registry.Socket, "sink_dir", cfg.Sinks.Directory)

	for {
		select {
		case ev, ok := <-reg.Events:
			if !ok {
				return fmt.Errorf("display connection lost")
			}
			b.handle(ev)

		case next := <-reloads:
			reg = reregister(provider, next, logger)
			b.sinkDir = next.Sinks.Directory
			b.notify = next.Notify.Enabled
			b.client = newRegistryClient(next)

		case sig := <-sigs:
			logger.Info("shutting down", "signal", sig.String())
			provider.Unregister()
			return nil
		}
	}
}

// reregister swaps the active hotkey bindings for a reloaded config.
// On failure the old registration is already gone, so the daemon keeps
// running without bindings until the next successful reload.
func reregister(provider *hotkey.X11Provider, cfg *config.Config, logger *logging.Logger) *hotkey.Registration {
	provider.Unregister()

	capture, paste, clipboard := bindings(cfg)
	reg, err := provider.Register(capture, paste, clipboard)
	if err != nil {
		logger.Error("hotkey re-registration failed", "error", err)
		return &hotkey.Registration{Events: idleEvents()}
	}
	logger.Info("hotkeys re-registered", "ok", reg.BindingsOK)
	return reg
}

// idleEvents is an event stream that never fires, used when no
// registration is active so the select loop stays valid without
// tripping the connection-lost check.
func idleEvents() <-chan hotkey.Event {
	return make(chan hotkey.Event)
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "turnkeyd",
	})
}

func newRegistryClient(cfg *config.Config) *registry.Client {
	clientCfg := registry.DefaultClientConfig()
	if cfg.Registry.Socket != "" {
		clientCfg.SocketPath = cfg.Registry.Socket
	}
	return registry.NewClient(clientCfg)
}
