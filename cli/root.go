package cli

import (
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/makotom/ladderspeed/config"
	"github.com/makotom/ladderspeed/history"
)

type rootOptions struct {
	configPath string
	logLevel   string
	testIP4    bool
	testIP6    bool
	noHistory  bool
	live       bool
}

// NewRootCommand returns the command tree. Running the root command
// performs a measurement.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "ladderspeed",
		Short:        "Measure latency, jitter and throughput over a ladder of payload sizes",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMeasurements(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	addRunFlags(cmd.Flags(), opts)

	cmd.AddCommand(newHistoryCommand(opts))

	return cmd
}

func addRunFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.BoolVarP(&opts.testIP4, "ip4", "4", false, "Ensure measurements over IPv4")
	flags.BoolVarP(&opts.testIP6, "ip6", "6", false, "Ensure measurements over IPv6")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record the result in the history")
	flags.BoolVar(&opts.live, "live", false, "Print realtime throughput while transfers run")
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	return cfg, nil
}

// protocols picks the transport protocols to measure over. -4 and -6 are
// not mutually exclusive.
func (o *rootOptions) protocols(cfg *config.Config) []string {
	if !o.testIP4 && !o.testIP6 {
		return []string{cfg.Network.Protocol}
	}

	ret := []string{}
	if o.testIP4 {
		ret = append(ret, "tcp4")
	}
	if o.testIP6 {
		ret = append(ret, "tcp6")
	}

	return ret
}

func openHistory(cfg *config.Config, logger zerolog.Logger) (*history.Store, func(), error) {
	if !cfg.History.Enabled() {
		return nil, func() {}, nil
	}

	backend, err := history.Open(cfg.History.BlobConfig(), logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open history")
	}

	store := history.NewStore(backend,
		history.WithKey(cfg.History.Key),
		history.WithLimit(cfg.History.Limit),
		history.WithLogger(logger.With().Str("component", "history").Logger()),
	)
	closeFn := func() {
		if err := backend.Close(); err != nil {
			logger.Warn().Err(err).Msg("could not close history")
		}
	}

	return store, closeFn, nil
}

func runMeasurements(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	var store *history.Store
	if !opts.noHistory {
		var closeHistory func()
		store, closeHistory, err = openHistory(cfg, logger)
		if err != nil {
			return err
		}
		defer closeHistory()
	}

	printer := log.New(cmd.OutOrStdout(), "", 0)
	printer.Printf("ladderspeed %s\n", cmd.Root().Version)

	return measureEach(opts.protocols(cfg), logger, func(protocol string) error {
		printTimestamp(printer)

		run := &runPrinter{
			printer: printer,
			live:    opts.live,
			sizes:   cfg.Engine.PayloadSizes,
		}
		results, err := RunAndPrint(cmd.Context(), run, cfg, protocol, logger)
		if err != nil {
			return err
		}
		if store != nil {
			store.Append(cmd.Context(), *results)
		}
		return nil
	})
}

// measureEach runs measure for every protocol even when an earlier one
// fails, and reports the failed ones together.
func measureEach(protocols []string, logger zerolog.Logger, measure func(protocol string) error) error {
	failed := []string{}

	for _, protocol := range protocols {
		if err := measure(protocol); err != nil {
			logger.Error().Err(err).Str("protocol", protocol).Msg("measurement failed")
			failed = append(failed, protocol)
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("measurement failed over %s", strings.Join(failed, ", "))
	}

	return nil
}

func printTimestamp(printer *log.Logger) {
	printer.Println()
	printer.Printf("At: %s\n", time.Now().Format(time.RFC1123Z))
	printer.Println()
}
