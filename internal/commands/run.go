package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/costbasis/internal/classify"
	"github.com/cleared-dev/costbasis/internal/config"
	"github.com/cleared-dev/costbasis/internal/export"
	"github.com/cleared-dev/costbasis/internal/importer"
	"github.com/cleared-dev/costbasis/internal/logger"
	"github.com/cleared-dev/costbasis/internal/model"
	"github.com/cleared-dev/costbasis/internal/price"
	"github.com/cleared-dev/costbasis/internal/report"
	"github.com/cleared-dev/costbasis/internal/review"
)

const summaryCommand = "summary"

var errMissingFile = errors.New("please specify a transactions file")

type runOptions struct {
	file         string
	summary      bool
	sampleSize   int
	configPath   string
	format       string
	mockPrices   bool
	salesOut     string
	holdingsOut  string
	unmatchedOut string
	reviewLog    string
}

func newRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <transactions.csv> [summary] [sampleSize]",
		Short: "Classify a transaction export and compute cost basis",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errMissingFile
			}
			if len(args) > 3 {
				return fmt.Errorf("accepts at most 3 args, received %d", len(args))
			}
			if len(args) > 1 && args[1] != summaryCommand {
				return fmt.Errorf("unknown command %q (expected %q)", args[1], summaryCommand)
			}
			if len(args) > 2 {
				n, err := strconv.Atoi(args[2])
				if err != nil || n <= 0 {
					return fmt.Errorf("sample size must be a positive integer, got %q", args[2])
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.file = args[0]
			opts.summary = len(args) > 1
			if len(args) > 2 {
				opts.sampleSize, _ = strconv.Atoi(args[2])
			}
			return runRun(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", config.FileName, "config file; defaults apply when it does not exist")
	f.StringVar(&opts.format, "format", "cointracking", "transaction export format")
	f.BoolVar(&opts.mockPrices, "mock-prices", false, "price every asset at 0 instead of fetching prices")
	f.StringVar(&opts.salesOut, "sales-out", "", "write realized sales and like-kind exchanges to this CSV")
	f.StringVar(&opts.holdingsOut, "holdings-out", "", "write remaining lots to this CSV")
	f.StringVar(&opts.unmatchedOut, "unmatched-out", "", "write synthesized cost-basis records for unmatched deposits to this CSV")
	f.StringVar(&opts.reviewLog, "review-log", "", "append diagnostics to this CSV review log")

	return cmd
}

func runRun(ctx context.Context, stdout, stderr io.Writer, opts runOptions) error {

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	txs, err := importer.DefaultRegistry().ReadFile(opts.file, opts.format)
	if err != nil {
		return err
	}
	if opts.sampleSize > 0 && opts.sampleSize < len(txs) {
		txs = txs[:opts.sampleSize]
	}
	log.Info("loaded transactions", "file", opts.file, "count", len(txs))

	prices, closePrices, err := openPrices(cfg, opts.mockPrices, log)
	if err != nil {
		return err
	}
	defer closePrices()

	result, err := classify.New(prices, cfg.AirdropSymbols, classify.WithLogger(log)).Run(ctx, txs)
	if err != nil {
		return err
	}

	if opts.summary {
		report.Summary(stdout, result)
	} else {
		fmt.Fprintf(stdout, "Classified %d transactions: %d sales, %d like-kind exchanges, total gain %s\n",
			result.Classified(), len(result.Sales), len(result.LikeKindExchanges), result.TotalGain().StringFixed(2))
	}

	return writeOutputs(opts, result, log)
}

// openPrices builds the memoized price provider. The returned func
// releases the persistent cache.
func openPrices(cfg *config.Config, mock bool, log *slog.Logger) (price.Provider, func(), error) {
	if mock {
		return price.Zero{}, func() {}, nil
	}

	client := price.NewClient(price.ClientConfig{
		BaseURL:           cfg.Price.BaseURL,
		APIKey:            cfg.APIKey(),
		DefaultVenue:      cfg.DefaultVenue,
		RequestsPerSecond: cfg.Price.RequestsPerSecond,
		Timeout:           cfg.Price.Timeout,
		Logger:            log,
	})

	if cfg.Price.CachePath == "" {
		return price.NewCache(client, cfg.DefaultVenue, nil, log), func() {}, nil
	}
	store, err := price.OpenSQLite(cfg.Price.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening price cache: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("closing price cache", "error", err)
		}
	}
	return price.NewCache(client, cfg.DefaultVenue, store, log), closeStore, nil
}

func writeOutputs(opts runOptions, r *classify.Result, log *slog.Logger) error {
	if opts.salesOut != "" {
		err := writeFile(opts.salesOut, func(w io.Writer) error {
			return export.WriteSales(w, r.Sales, r.LikeKindExchanges)
		})
		if err != nil {
			return err
		}
	}
	if opts.holdingsOut != "" {
		err := writeFile(opts.holdingsOut, func(w io.Writer) error {
			return export.WriteHoldings(w, r.Ledger)
		})
		if err != nil {
			return err
		}
	}
	if opts.unmatchedOut != "" {
		err := writeFile(opts.unmatchedOut, func(w io.Writer) error {
			return importer.WriteTransactions(w, r.Buckets[model.CategoryUnmatchedDeposit])
		})
		if err != nil {
			return err
		}
	}
	if opts.reviewLog != "" {
		entries := review.FromResult(review.NewRunID(), time.Now().UTC(), r)
		if len(entries) > 0 {
			if err := review.Append(opts.reviewLog, entries); err != nil {
				return fmt.Errorf("writing review log: %w", err)
			}
			log.Info("wrote review log", "path", opts.reviewLog, "entries", len(entries))
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
