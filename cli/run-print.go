package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/makotom/ladderspeed/config"
	"github.com/makotom/ladderspeed/ladderspeed"
)

type runPrinter struct {
	printer *log.Logger
	live    bool
	sizes   []int64

	liveLine bool
}

func (p *runPrinter) endLiveLine() {
	if p.liveLine {
		p.printer.Writer().Write([]byte("\n"))
		p.liveLine = false
	}
}

func (p *runPrinter) handle(event ladderspeed.Event) {
	switch ev := event.(type) {
	case ladderspeed.StateChanged:
		if ev.State == ladderspeed.StateLatency {
			p.printer.Println("Measuring unloaded latency...")
		}
	case ladderspeed.LatencyUpdated:
		p.printer.Printf("RTT-mean: %.0f ms\n", ev.LatencyMs)
		p.printer.Printf("RTT-jitter: %.0f ms\n", ev.JitterMs)
		p.printer.Println()
	case ladderspeed.SpeedUpdated:
		if p.live {
			fmt.Fprintf(p.printer.Writer(), "\r  %-8s %10.3f Mbps", ev.Phase, ev.Mbps)
			p.liveLine = true
		}
	case ladderspeed.MeasurementCompleted:
		p.endLiveLine()
		printMeasurementPoint(p.printer, ev.Rung, len(p.sizes), ev.Point)
	case ladderspeed.RunFinished:
		p.endLiveLine()
		printResults(p.printer, ev.Results)
	case ladderspeed.RunFailed:
		p.endLiveLine()
	}
}

func printMeasurementPoint(printer *log.Logger, rung int, rungs int, point ladderspeed.MeasurementPoint) {
	printer.Printf("[%d/%d] %-9s down %9.3f Mbps  up %9.3f Mbps  ping %4.0f ms  jitter %3.0f ms\n",
		rung+1, rungs, humanize.IBytes(uint64(point.PayloadSize)),
		point.DownloadMbps, point.UploadMbps, point.PingMs, point.JitterMs)
}

func printResults(printer *log.Logger, results *ladderspeed.TestResults) {
	if results == nil {
		return
	}

	printer.Println()
	printer.Printf("Downlink: %.3f Mbps\n", results.DownloadMbps)
	printer.Printf("Uplink: %.3f Mbps\n", results.UploadMbps)
	printer.Printf("Latency: %.0f ms\n", results.LatencyMs)
	printer.Printf("Jitter: %.0f ms\n", results.JitterMs)

	details := results.Details
	if details == nil {
		return
	}
	if details.ServerLocation != "" {
		printer.Printf("Server: %s\n", details.ServerLocation)
	}
	if details.NetworkProvider != "" {
		printer.Printf("Provider: %s\n", details.NetworkProvider)
	}
	if details.IPAddress != "" {
		printer.Printf("SrcIP: %s\n", details.IPAddress)
	}
	if q := details.NetworkQuality; q != nil {
		printer.Printf("Quality: streaming %s, gaming %s, video chat %s\n", q.VideoStreaming, q.OnlineGaming, q.VideoChatting)
	}
	printer.Printf("ID: %s\n", results.ID)
}

// RunAndPrint performs one run over transportProtocol and prints its
// progress. It returns the final results.
func RunAndPrint(ctx context.Context, p *runPrinter, cfg *config.Config, transportProtocol string, logger zerolog.Logger) (*ladderspeed.TestResults, error) {
	engine := ladderspeed.NewEngine(cfg.Engine,
		ladderspeed.WithHTTPClient(ladderspeed.NewHTTPClient(transportProtocol, cfg.Network.DialTimeout)),
		ladderspeed.WithLogger(logger.With().Str("protocol", transportProtocol).Logger()),
	)

	events, err := engine.Start(ctx)
	if err != nil {
		return nil, err
	}

	var results *ladderspeed.TestResults
	var runErr error
	for event := range events {
		p.handle(event)

		switch ev := event.(type) {
		case ladderspeed.RunFinished:
			results = ev.Results
		case ladderspeed.RunFailed:
			runErr = ev.Err
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	if results == nil {
		return nil, errors.New("run ended without results")
	}

	return results, nil
}
