package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/journal"
	"github.com/tessro/startify/internal/tail"
	"github.com/tessro/startify/internal/tui/components"
)

var (
	historyLimit int
	historyTypes []string
	historySince time.Duration
	historyPrune time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded playback events",
	Long: `Show events recorded in the journal by 'startify tail --journal' and
the dashboard, newest first.

Examples:
  startify history -n 50
  startify history --type track_change --since 24h
  startify history --prune 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", journal.DefaultLimit, "number of events to show")
	historyCmd.Flags().StringSliceVar(&historyTypes, "type", nil, "only show these event types")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only show events newer than this")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete events older than this and exit")
	rootCmd.AddCommand(historyCmd)
}

func openJournal() (*journal.Store, error) {
	path := cfg.Journal.Path
	if path == "" {
		p, err := journal.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return journal.Open(path)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	now := time.Now()

	if historyPrune > 0 {
		n, err := store.Prune(ctx, now.Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d events\n", n)
		return nil
	}

	q := journal.Query{Limit: historyLimit}
	for _, t := range historyTypes {
		q.Types = append(q.Types, tail.EventType(strings.TrimSpace(t)))
	}
	if historySince > 0 {
		q.Since = now.Add(-historySince)
	}

	events, err := store.Recent(ctx, q)
	if err != nil {
		return err
	}
	if events == nil {
		events = []tail.Event{}
	}

	return render(cmd.OutOrStdout(), events, func(w io.Writer) error {
		if len(events) == 0 {
			_, err := fmt.Fprintln(w, "No events recorded. Run 'startify tail --journal' to start recording.")
			return err
		}
		t := NewTable(w, "WHEN", "EVENT", "DETAIL")
		for _, e := range events {
			t.Row(components.TimeAgo(e.Timestamp, now), string(e.Type), tail.Describe(e))
		}
		t.Flush()
		return nil
	})
}
