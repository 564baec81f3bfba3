package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tessro/startify/internal/auth"
	"github.com/tessro/startify/internal/backend/client"
	"github.com/tessro/startify/internal/backend/remote"
	"github.com/tessro/startify/internal/config"
	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/playback"
	"github.com/tessro/startify/internal/session"
)

// commandTimeout bounds one-shot commands.
const commandTimeout = 15 * time.Second

func credentialStorage() (*auth.Storage, error) {
	storage, err := auth.NewStorage("")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential storage: %w", err)
	}
	return storage, nil
}

// newClient builds a backend client from the loaded config. The credential
// is required unless optional is set.
func newClient(optional bool) (*client.Client, *auth.Storage, error) {
	storage, err := credentialStorage()
	if err != nil {
		return nil, nil, err
	}

	c := client.New(cfg.Backend.BaseURL, storage,
		client.WithTimeout(config.Millis(cfg.Backend.Timeout)),
		client.WithRetries(cfg.Backend.Retries),
		client.WithLogger(logger),
	)
	if err := c.LoadCredential(); err != nil {
		return nil, nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if !optional && !c.HasCredential() {
		return nil, nil, apperrors.ErrNotAuthenticated
	}
	return c, storage, nil
}

func newRemote() (*remote.Remote, error) {
	c, _, err := newClient(false)
	if err != nil {
		return nil, err
	}
	return remote.New(c), nil
}

// newSession wires a session to the configured backend. The stored
// credential is deleted when the backend rejects it.
func newSession(recorder metrics.Recorder) (*session.Session, error) {
	c, storage, err := newClient(false)
	if err != nil {
		return nil, err
	}

	return session.New(session.Options{
		Remote:    remote.New(c),
		Intervals: intervals(cfg),
		RefetchDelays: playback.RefetchDelays{
			Skip:     config.Millis(cfg.Refetch.SkipDelay),
			Transfer: config.Millis(cfg.Refetch.TransferDelay),
		},
		TransferTimeout: config.Millis(cfg.Refetch.TransferTimeout),
		Logger:          logger,
		Recorder:        recorder,
		OnUnauthorized: func() { forgetCredential(storage, logger) },
	})
}

// forgetCredential drops a credential the backend has rejected.
func forgetCredential(storage *auth.Storage, log *slog.Logger) {
	if err := storage.Delete(); err != nil {
		log.Warn("failed to delete rejected credential",
			logging.Path(storage.Path()), logging.Error(err))
	}
}

func intervals(c *config.Config) session.Intervals {
	return session.Intervals{
		Snapshot: config.Millis(c.Poll.SnapshotInterval),
		Devices:  config.Millis(c.Poll.DevicesInterval),
		Health:   config.Millis(c.Poll.HealthInterval),
		Modules:  config.Millis(c.Poll.ModulesInterval),
	}
}

func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}
