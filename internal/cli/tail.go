package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/tessro/startify/internal/errors"
	"github.com/tessro/startify/internal/session"
	"github.com/tessro/startify/internal/tail"
)

var (
	tailNoEmoji   bool
	tailTimestamp bool
	tailFormat    string
	tailArm       bool
	tailJournal   bool
	tailNATS      string
	tailMetrics   string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow playback changes in real-time",
	Long: `Watch for playback and engine changes and print them as they happen.

Events tracked:
  - Track changes, completions and skips
  - Pause/Resume
  - Volume and device changes
  - Health conditions raised and cleared (with --arm)
  - Voice and hand module changes

Events can also be written to the local journal (--journal) and published
to NATS (--nats) for other processes to consume.

Templates use Go text/template syntax, for example:
  startify tail -f '{{.Type}} {{.Title}} by {{.Artist}}'`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailNoEmoji, "no-emoji", false, "disable emoji output")
	tailCmd.Flags().BoolVarP(&tailTimestamp, "timestamp", "t", false, "show timestamps")
	tailCmd.Flags().StringVarP(&tailFormat, "format", "f", "", "custom format template")
	tailCmd.Flags().BoolVar(&tailArm, "arm", false, "poll system health as well")
	tailCmd.Flags().BoolVar(&tailJournal, "journal", false, "record events in the journal (default from journal.enabled)")
	tailCmd.Flags().StringVar(&tailNATS, "nats", "", "publish events to this NATS server (default from publish.nats_url)")
	tailCmd.Flags().StringVar(&tailMetrics, "metrics", "", "serve Prometheus metrics on this address (default from metrics.addr)")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	var opts []tail.FormatterOption
	if tailFormat != "" {
		tmpl, err := tail.ParseTemplate(tailFormat)
		if err != nil {
			return err
		}
		opts = append(opts, tail.WithTemplate(tmpl))
	}
	opts = append(opts, tail.WithEmoji(!tailNoEmoji), tail.WithTimestamp(tailTimestamp))
	formatter := tail.NewFormatter(opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsAddr := cfg.Metrics.Addr
	if tailMetrics != "" {
		metricsAddr = tailMetrics
	}
	lv, err := startLive(ctx, liveOptions{
		MetricsAddr: metricsAddr,
		Journal:     tailJournal || cfg.Journal.Enabled,
		JournalPath: cfg.Journal.Path,
		Arm:         tailArm,
	})
	if err != nil {
		return err
	}
	defer lv.Close()

	out := cmd.OutOrStdout()
	var sinks tail.MultiSink
	if JSONOutput() {
		sinks = append(sinks, tail.NewJSONSink(out))
	} else {
		sinks = append(sinks, tail.NewLineSink(out, formatter))
	}
	if lv.journal != nil {
		sinks = append(sinks, lv.journal)
	}

	natsURL := cfg.Publish.NATSURL
	if tailNATS != "" {
		natsURL = tailNATS
	}
	if natsURL != "" {
		pub, err := tail.ConnectPublisher(natsURL, cfg.Publish.Subject, logger)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		sinks = append(sinks, pub)
	}

	// There is nothing left to follow once the backend rejects the credential.
	followCtx, endFollow := context.WithCancel(ctx)
	defer endFollow()
	sinks = append(sinks, tail.SinkFunc(func(_ context.Context, e tail.Event) error {
		if e.Type == tail.EventLoggedOut {
			endFollow()
		}
		return nil
	}))

	views, unsubscribe := lv.sess.Subscribe()
	defer unsubscribe()

	err = tail.Follow(followCtx, views, sinks, logger)
	if lv.sess.View().Status == session.StatusUnauthenticated {
		return fmt.Errorf("session ended: %w", apperrors.ErrNotAuthenticated)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
