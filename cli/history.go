package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/makotom/ladderspeed/history"
	"github.com/makotom/ladderspeed/ladderspeed"
)

var errHistoryDisabled = errors.New("history is disabled (history.driver=none)")

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, opts, func(store *history.Store) error {
				results := store.Load(cmd.Context())
				printHistory(cmd.OutOrStdout(), results)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show the per-size measurements of a result (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, opts, func(store *history.Store) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				}

				result, ok := findResult(store.Load(cmd.Context()), id)
				if !ok {
					return errors.Errorf("no recorded result %q", id)
				}
				printDetails(cmd.OutOrStdout(), result)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, opts, func(store *history.Store) error {
				store.Clear(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			})
		},
	})

	return cmd
}

func withHistory(cmd *cobra.Command, opts *rootOptions, fn func(*history.Store) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	store, closeHistory, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()
	if store == nil {
		return errHistoryDisabled
	}

	return fn(store)
}

// findResult returns the result with the given ID, or the newest one when id
// is empty.
func findResult(results []ladderspeed.TestResults, id string) (ladderspeed.TestResults, bool) {
	if id == "" {
		if len(results) == 0 {
			return ladderspeed.TestResults{}, false
		}
		return results[0], true
	}

	for _, r := range results {
		if r.ID == id {
			return r, true
		}
	}

	return ladderspeed.TestResults{}, false
}

func printHistory(w io.Writer, results []ladderspeed.TestResults) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No recorded results.")
		return
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"ID", "When", "Download (Mbps)", "Upload (Mbps)", "Latency (ms)", "Jitter (ms)", "Server"}),
	)
	for _, r := range results {
		server := ""
		if r.Details != nil {
			server = r.Details.ServerLocation
		}

		table.Append([]string{
			r.ID,
			humanize.Time(r.Timestamp),
			fmt.Sprintf("%.2f", r.DownloadMbps),
			fmt.Sprintf("%.2f", r.UploadMbps),
			fmt.Sprintf("%.0f", r.LatencyMs),
			fmt.Sprintf("%.0f", r.JitterMs),
			server,
		})
	}
	table.Render()

	s := history.Summarize(results)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d tests between %s and %s\n", s.TestCount,
		s.FirstTest.Local().Format(time.RFC1123Z), s.LastTest.Local().Format(time.RFC1123Z))
	fmt.Fprintf(w, "Download: avg %.2f / min %.2f / max %.2f Mbps\n", s.AvgDownload, s.MinDownload, s.MaxDownload)
	fmt.Fprintf(w, "Upload:   avg %.2f / min %.2f / max %.2f Mbps\n", s.AvgUpload, s.MinUpload, s.MaxUpload)
	fmt.Fprintf(w, "Latency:  avg %.0f / min %.0f / max %.0f ms\n", s.AvgLatency, s.MinLatency, s.MaxLatency)
}

func printDetails(w io.Writer, r ladderspeed.TestResults) {
	fmt.Fprintf(w, "ID: %s\n", r.ID)
	fmt.Fprintf(w, "At: %s\n", r.Timestamp.Local().Format(time.RFC1123Z))
	fmt.Fprintf(w, "Download %.2f Mbps, upload %.2f Mbps, latency %.0f ms, jitter %.0f ms\n",
		r.DownloadMbps, r.UploadMbps, r.LatencyMs, r.JitterMs)

	if r.Details == nil {
		return
	}
	d := r.Details
	fmt.Fprintf(w, "Unloaded latency %.0f ms, jitter %.0f ms\n", d.UnloadedLatency, d.UnloadedJitter)
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Size", "Download (Mbps)", "Upload (Mbps)", "Ping (ms)", "Jitter (ms)", "Down (s)", "Up (s)"}),
	)
	for _, m := range d.Measurements {
		table.Append([]string{
			humanize.IBytes(uint64(m.PayloadSize)),
			fmt.Sprintf("%.2f", m.DownloadMbps),
			fmt.Sprintf("%.2f", m.UploadMbps),
			fmt.Sprintf("%.0f", m.PingMs),
			fmt.Sprintf("%.0f", m.JitterMs),
			formatSeconds(m.DownloadDurationSec),
			formatSeconds(m.UploadDurationSec),
		})
	}
	table.Render()

	if q := d.NetworkQuality; q != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Video streaming: %s\n", q.VideoStreaming)
		fmt.Fprintf(w, "Online gaming:   %s\n", q.OnlineGaming)
		fmt.Fprintf(w, "Video chatting:  %s\n", q.VideoChatting)
	}
}

func formatSeconds(sec *float64) string {
	if sec == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *sec)
}
