// Command batch optimizes a list of symbols once and exits.
//
//	batch -config config/config.yaml -symbols AAPL,MSFT -refresh
//	batch -config config/config.yaml -positions
//
// Symbols default to optimizer.symbols from the config. With -positions it instead
// records today's signal for every symbol that has a stored optimization.
// A failing symbol is reported and the run moves on; the exit code is 1 when
// any symbol failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"WindowOpt/internal/di"
	"WindowOpt/internal/domain/models"
	"WindowOpt/internal/usecase"
	"WindowOpt/pkg/config"
	"WindowOpt/pkg/util"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: optimizer.symbols)")
	period := flag.String("period", "", "lookback period (default: optimizer.default_period)")
	refresh := flag.Bool("refresh", false, "recompute even when a stored result exists")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall deadline")
	positions := flag.Bool("positions", false, "record today's position for every stored symbol")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	// The batch run has no use for the refresh consumer.
	cfg.Kafka.RefreshTopic = ""

	symbols := cfg.Optimizer.Symbols
	if *symbolsFlag != "" {
		symbols = util.SplitList(*symbolsFlag)
	}
	if len(symbols) == 0 && !*positions {
		log.Fatal("no symbols: pass -symbols or set optimizer.symbols")
	}

	batch, cleanup, err := di.InitializeBatch(cfg)
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	var failed, total int
	if *positions {
		failed, total = recordPositions(ctx, tw, batch.Positions)
	} else {
		failed, total = optimize(ctx, tw, batch.Service, symbols, *period, *refresh)
	}
	_ = tw.Flush()

	if failed > 0 {
		cleanup()
		log.Printf("%d of %d symbols failed", failed, total)
		os.Exit(1)
	}
}

func optimize(ctx context.Context, tw io.Writer, svc *usecase.OptimizedSymbolService, symbols []string, period string, refresh bool) (failed, total int) {
	fmt.Fprintln(tw, "SYMBOL\tPERIOD\tORGANIC\tSMA\tDUAL\tEMA\tSTATUS")
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		var (
			rec models.SymbolOptimization
			err error
		)
		if refresh {
			rec, err = svc.Refresh(ctx, sym, period)
		} else {
			rec, err = svc.Resolve(ctx, sym, period)
		}
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t%v\n", sym, period, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%s\t%s\t%s\tok\n",
			rec.Symbol, rec.Period, rec.OrganicGrowth,
			describe(rec.Single), describe(rec.Dual), describe(rec.Exponential))
	}
	return failed, len(symbols)
}

func recordPositions(ctx context.Context, tw io.Writer, rec *usecase.PositionRecorder) (failed, total int) {
	report, err := rec.RecordAll(ctx)
	if err != nil {
		log.Printf("positions: %v", err)
		return 1, 1
	}
	fmt.Fprintln(tw, "SYMBOL\tDATE\tSTRATEGY\tPOSITION\tAT_PRICE\tCHANGED")
	for _, p := range report.Recorded {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%t\n",
			p.Symbol, p.Date.Format(time.DateOnly),
			string(p.Strategy)+" "+describe(models.OptimizationResult{Windows: p.Windows, Multiple: p.Multiple}),
			p.Position, p.ExecutionPrice, p.ChangedFromPrevious)
	}
	for sym, err := range report.Failed {
		fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%v\n", sym, err)
	}
	return len(report.Failed), len(report.Recorded) + len(report.Failed)
}

func describe(r models.OptimizationResult) string {
	ws := make([]string, len(r.Windows))
	for i, w := range r.Windows {
		ws[i] = fmt.Sprint(w)
	}
	return fmt.Sprintf("%s=%.4f", strings.Join(ws, "/"), r.Multiple)
}
