package cli

import (
	"context"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/tessro/startify/internal/config"
	"github.com/tessro/startify/internal/journal"
	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/metrics"
	"github.com/tessro/startify/internal/session"
)

// liveOptions selects the optional pieces around a long-running session.
type liveOptions struct {
	MetricsAddr string
	Journal     bool
	JournalPath string
	Arm         bool
}

// live is a started session plus everything hanging off it.
type live struct {
	sess    *session.Session
	journal *journal.Store
	closers []func()
}

// startLive starts a session for the ui and tail commands. Poll cadences
// follow edits to the config file while it runs.
func startLive(ctx context.Context, opts liveOptions) (*live, error) {
	l := &live{}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if opts.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		mctx, cancel := context.WithCancel(ctx)
		l.closers = append(l.closers, cancel)
		go func() {
			if err := metrics.Serve(mctx, opts.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics server stopped", logging.Error(err))
			}
		}()
	}

	if opts.Journal {
		path := opts.JournalPath
		if path == "" {
			p, err := journal.DefaultPath()
			if err != nil {
				l.Close()
				return nil, err
			}
			path = p
		}
		store, err := journal.Open(path)
		if err != nil {
			l.Close()
			return nil, err
		}
		l.journal = store
		l.closers = append(l.closers, func() { _ = store.Close() })
	}

	sess, err := newSession(recorder)
	if err != nil {
		l.Close()
		return nil, err
	}
	if err := sess.Start(ctx); err != nil {
		l.Close()
		return nil, err
	}
	l.sess = sess
	l.closers = append(l.closers, sess.Stop)

	if opts.Arm {
		if err := sess.Arm(); err != nil {
			logger.Warn("failed to arm health monitor", logging.Error(err))
		}
	}

	path := cfgFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path != "" {
		w, err := config.Watch(ctx, path, func(c *config.Config) {
			logger.Info("config changed, applying poll intervals", logging.Path(path))
			sess.SetIntervals(intervals(c))
		}, config.WithWatchLogger(logger))
		if err != nil {
			logger.Warn("config watch unavailable", logging.Path(path), logging.Error(err))
		} else {
			l.closers = append(l.closers, func() { _ = w.Close() })
		}
	}

	logger.Debug("live session ready", slog.Bool("journal", l.journal != nil), slog.String("metrics", opts.MetricsAddr))
	return l, nil
}

// Close releases everything in reverse start order.
func (l *live) Close() {
	for i := len(l.closers) - 1; i >= 0; i-- {
		l.closers[i]()
	}
	l.closers = nil
}
