package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"quickclip/internal/clipboard"
	"quickclip/internal/config"
	"quickclip/internal/crypto"
	"quickclip/internal/history"
	"quickclip/internal/service"
	"quickclip/internal/storage"
	"quickclip/internal/storage/bolt"
	"quickclip/internal/storage/imagefs"
	"quickclip/internal/storage/sqlite"
)

// app is the wired object graph shared by the serve, tui, list and clear
// commands.
type app struct {
	cfg       *config.Config
	persister storage.Persister
	images    *imagefs.Store
	accessor  clipboard.Accessor
	poller    *clipboard.Poller
	store     *history.Store
	svc       *service.ClipboardService
}

// openApp builds the history and service. With capture set the system
// clipboard is polled.
func openApp(cfg *config.Config, capture bool) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	persister, err := openPersister(cfg)
	if err != nil {
		return nil, err
	}

	images, err := imagefs.New(cfg.ImageDir(), int(cfg.MaxImageBytes))
	if err != nil {
		persister.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		persister: persister,
		images:    images,
		accessor:  openAccessor(cfg, images),
	}
	a.store = history.New(history.Options{
		Persister:  persister,
		Images:     images,
		Clipboard:  a.accessor,
		MaxHistory: cfg.MaxHistory,
		MaxPins:    cfg.MaxPins,
	})
	if capture {
		a.poller = clipboard.NewPoller(a.accessor, a.store, clipboard.SystemChangeCounter(), cfg.Poll)
	}

	links := service.QuickLinksFromConfig(cfg.QuickLinks)
	a.svc = service.New(service.Options{
		Store:     a.store,
		Clipboard: a.accessor,
		Poller:    a.poller,
		Links:     links,
		Runner:    service.NewURLRunner(links),
	})
	return a, nil
}

func (a *app) start(ctx context.Context) error {
	slog.Info("quickclip starting",
		"version", Version,
		"data_dir", a.cfg.DataDir,
		"backend", a.cfg.Backend,
		"encrypted", a.cfg.Encrypt,
		"capture", a.poller != nil,
		"poll_base", a.cfg.PollInterval(),
	)
	if err := a.svc.Start(ctx); err != nil {
		return err
	}
	slog.Info("history loaded", "pinned", a.store.PinnedCount(), "recent", a.store.UnpinnedCount())
	return nil
}

// close stops the service, which flushes the history, then closes storage.
func (a *app) close(ctx context.Context) error {
	return errors.Join(a.svc.Stop(ctx), a.persister.Close())
}

func openPersister(cfg *config.Config) (storage.Persister, error) {
	var (
		p   storage.Persister
		err error
	)
	switch cfg.Backend {
	case config.BackendBolt:
		p, err = bolt.New(cfg.Storage())
	default:
		p, err = sqlite.New(cfg.Storage())
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s history: %w", cfg.Backend, err)
	}
	if !cfg.Encrypt {
		return p, nil
	}

	var key *crypto.Key
	if cfg.Passphrase != "" {
		key, err = crypto.DeriveKey(cfg.Passphrase)
	} else {
		key, err = crypto.LoadOrCreateKey(cfg.KeyFile())
	}
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return storage.NewSealed(p, key), nil
}

func openAccessor(cfg *config.Config, images *imagefs.Store) clipboard.Accessor {
	if cfg.Headless {
		slog.Info("clipboard backend", "name", "headless")
		return clipboard.Headless{}
	}
	sys, err := clipboard.NewSystem(images)
	if err != nil {
		slog.Warn("system clipboard unavailable, running headless", "err", err)
		return clipboard.Headless{}
	}
	slog.Info("clipboard backend", "name", "system")
	return sys
}
