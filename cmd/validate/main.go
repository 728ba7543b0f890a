/*
main.go - Application entry point

PURPOSE:
  Runs the RFID location agreement validation: one batch pass per entity
  kind, reading the signals export and the smoothed reference table,
  printing agreement and coverage fractions to stdout.

COMMAND-LINE FLAGS:
  -signals-dir     Directory holding <entity>_signals.csv.gz (default: .)
  -reference-dir   Directory holding <entity>_locations_sm.csv.gz
                   (default: ../rfid, the pipeline's layout)
  -entity          patient, provider, or all (default: all)
  -signal-offset   Index of the first room column; 0 derives it from the
                   entity's identifier prefix. Set explicitly to reproduce
                   the historical hard-coded slices (5, or 4).
  -join-keys       Identifier join columns, comma separated (TagId,CSN,UMid);
                   timestamp is always joined. Empty uses the entity default
                   (patient: CSN, provider: UMid).
  -results         Optional SQLite database collecting runs and mismatches
  -xlsx            Optional workbook with the summary and mismatch rows
  -log-level       debug, info, warn, error (default: info)

OUTPUT:
  Result lines go to stdout; progress logging goes to stderr. Exit code 0
  on success, 1 on any structural error (missing file, bad column,
  unparseable timestamp). An empty join is not an error: the agreement
  prints as NaN.

EXAMPLES:
  # Both entity kinds, pipeline default layout
  ./validate

  # Provider only, reproducing the old off-by-two slice
  ./validate -entity=provider -signal-offset=5

  # Keep results for later comparison across data drops
  ./validate -results=validation.db -xlsx=validation.xlsx
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clarion/rfid-validate/agreement"
	"github.com/clarion/rfid-validate/dataset"
	"github.com/clarion/rfid-validate/report"
	"github.com/clarion/rfid-validate/rfid"
	"github.com/clarion/rfid-validate/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	signalsDir := flag.String("signals-dir", ".", "directory holding <entity>_signals.csv.gz")
	referenceDir := flag.String("reference-dir", filepath.Join("..", "rfid"), "directory holding <entity>_locations_sm.csv.gz")
	entity := flag.String("entity", "all", "entity kind to validate: patient, provider, or all")
	signalOffset := flag.Int("signal-offset", 0, "index of the first room column (0 = derive from schema)")
	joinKeys := flag.String("join-keys", "", "identifier join columns, comma separated (empty = entity default)")
	resultsPath := flag.String("results", "", "SQLite results database path (empty = off)")
	xlsxPath := flag.String("xlsx", "", "XLSX report path (empty = off)")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kinds := rfid.Kinds
	if *entity != "all" {
		kind, err := rfid.ParseKind(*entity)
		if err != nil {
			return err
		}
		kinds = []rfid.EntityKind{kind}
	}

	var keys []rfid.JoinKey
	if *joinKeys != "" {
		if keys, err = rfid.ParseJoinKeys(*joinKeys); err != nil {
			return err
		}
	}

	var results *sqlite.Store
	if *resultsPath != "" {
		if results, err = sqlite.New(*resultsPath); err != nil {
			return err
		}
		defer results.Close()
	}

	ctx := context.Background()
	startedAt := time.Now()

	var reports []*agreement.Report
	for _, kind := range kinds {
		rep, err := validateKind(kind, *signalsDir, *referenceDir, *signalOffset, keys, logger)
		if err != nil {
			return err
		}

		if err := report.WriteConsole(os.Stdout, rep); err != nil {
			return err
		}
		if results != nil {
			if err := results.SaveRun(ctx, sqlite.RunFromReport(rep, startedAt)); err != nil {
				return err
			}
		}
		reports = append(reports, rep)
	}

	if *xlsxPath != "" {
		if err := report.WriteXLSX(*xlsxPath, reports); err != nil {
			return err
		}
		logger.Info("wrote workbook", zap.String("file", *xlsxPath))
	}

	return nil
}

// validateKind runs the whole computation for one entity kind.
func validateKind(kind rfid.EntityKind, signalsDir, referenceDir string,
	signalOffset int, keys []rfid.JoinKey, logger *zap.Logger) (*agreement.Report, error) {

	schema, err := rfid.SchemaFor(kind)
	if err != nil {
		return nil, err
	}

	signalsPath := filepath.Join(signalsDir, fmt.Sprintf("%s_signals.csv.gz", kind))
	referencePath := filepath.Join(referenceDir, fmt.Sprintf("%s_locations_sm.csv.gz", kind))

	tbl, err := dataset.LoadSignals(signalsPath, schema, dataset.SignalOptions{
		SignalOffset: signalOffset,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	refs, _, err := dataset.LoadReference(referencePath, logger)
	if err != nil {
		return nil, err
	}

	rep, err := agreement.Validate(tbl, refs, keys)
	if err != nil {
		return nil, err
	}
	rep.ReferenceFile = referencePath

	logger.Info("validated",
		zap.String("entity", string(kind)),
		zap.Int("joined", rep.JoinedCount),
		zap.Int("mismatches", len(rep.Mismatches)),
	)

	return rep, nil
}

// newLogger builds a console logger writing to stderr, keeping stdout for
// the report itself.
func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
