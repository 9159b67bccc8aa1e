// Package app composes the engine with fx: one provider per component,
// lifecycle hooks for startup and teardown.
package app

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pigeonchat/pigeon/internal/backend"
	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/config"
	"github.com/pigeonchat/pigeon/internal/lock"
	"github.com/pigeonchat/pigeon/internal/logging"
	"github.com/pigeonchat/pigeon/internal/outbox"
	"github.com/pigeonchat/pigeon/internal/presence"
	"github.com/pigeonchat/pigeon/internal/roster"
	"github.com/pigeonchat/pigeon/internal/session"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/store"
	intsync "github.com/pigeonchat/pigeon/internal/sync"
	"github.com/pigeonchat/pigeon/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	Config  *config.Config
	Console bool // log to stderr in addition to the log file
}

// Module returns the fx module for the sync engine, composing all
// providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("engine",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			providePresence,
			provideRoster,
			provideBackend,
			provideTransport,
			provideJournal,
			provideCoordinator,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Profile), p.Profile, p.Console)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(session.LockPath(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("profile", p.Profile))
	return l, nil
}

func provideStore() *store.Store {
	return store.New()
}

func providePresence(p Params, b *bus.Bus) *presence.Tracker {
	return presence.NewTracker(b, time.Duration(p.Config.TypingExpiryMS)*time.Millisecond)
}

func provideRoster(b *bus.Bus) *roster.Roster {
	return roster.New(b)
}

func provideBackend(p Params) (*backend.Client, error) {
	token, err := session.LoadToken(p.Profile)
	if err != nil {
		return nil, err
	}
	return backend.NewClient(p.Config.ServerURL, backend.WithToken(token)), nil
}

func provideTransport(p Params, be *backend.Client, b *bus.Bus, logger *zap.Logger) (*transport.Manager, error) {
	wsURL, err := socketURL(p.Config.ServerURL)
	if err != nil {
		return nil, err
	}
	retry := &transport.RetryPolicy{
		FixedDelay: time.Duration(p.Config.Reconnect.DelayMS) * time.Millisecond,
		Backoff:    p.Config.Reconnect.Strategy == config.StrategyBackoff,
		BaseDelay:  time.Duration(p.Config.Reconnect.DelayMS) * time.Millisecond,
		MaxDelay:   time.Duration(p.Config.Reconnect.MaxDelayMS) * time.Millisecond,
	}
	return transport.NewManager(wsURL, be.WSToken, nil, retry, b, logger), nil
}

func provideJournal(p Params, logger *zap.Logger) (*outbox.Journal, error) {
	if !p.Config.Outbox.Enabled {
		return nil, nil
	}
	j, err := outbox.Open(session.OutboxPath(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("outbox journal opened", zap.String("path", session.OutboxPath(p.Profile)))
	return j, nil
}

func provideCoordinator(
	st *store.Store,
	tr *presence.Tracker,
	ro *roster.Roster,
	machine *status.Machine,
	tp *transport.Manager,
	be *backend.Client,
	journal *outbox.Journal,
	b *bus.Bus,
	logger *zap.Logger,
) *intsync.Coordinator {
	return intsync.New(st, tr, ro, machine, tp, be, journal, b, logger)
}

// socketURL converts the REST base URL into the realtime endpoint.
func socketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func registerLifecycle(
	lc fx.Lifecycle,
	coord *intsync.Coordinator,
	be *backend.Client,
	journal *outbox.Journal,
	lk *lock.Lock,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			me, err := be.Me(ctx)
			if err != nil {
				return err
			}
			coord.SetSelf(me.Username)

			if err := coord.Start(context.Background()); err != nil {
				return err
			}
			go func() {
				if err := coord.ResendUnconfirmed(context.Background()); err != nil {
					logger.Warn("outbox replay failed", zap.Error(err))
				}
			}()
			logger.Info("engine started", zap.String("user", me.Username))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			coord.Close()
			if err := journal.Close(); err != nil {
				logger.Warn("error closing journal", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("engine stopped")
			return nil
		},
	})
}
