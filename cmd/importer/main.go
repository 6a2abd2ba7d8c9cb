// Command importer loads project membership events from a directory of
// JSON files into the usage database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rpattn/slicereports/internal/config"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/ingestion"
	"github.com/rpattn/slicereports/internal/logger"
	"github.com/rpattn/slicereports/internal/repository"
)

func main() {
	fs := pflag.NewFlagSet("importer", pflag.ExitOnError)
	configPath := fs.String("config", ".", "directory containing config.yaml")
	showIssues := fs.Bool("issues", false, "print the issues recorded during this run")
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: importer [flags] <event-dir>")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, log := logger.ContextWithLogger(ctx)

	if cfg.AutoMigrate {
		if err := db.RunMigrations(cfg.Database); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	issues := repository.NewImportLogRepository(conn.Pool)
	importer := ingestion.NewMembershipImporter(
		repository.NewIngestionRepository(conn.Pool),
		ingestion.WithIssueLog(issues),
	)
	summary, err := importer.ImportDir(ctx, fs.Arg(0))
	if err != nil {
		log.WithError(err).Error("import failed")
		conn.Close()
		os.Exit(1)
	}

	if !*showIssues {
		issues = nil
	}
	if err := writeReport(ctx, os.Stdout, summary, issues); err != nil {
		log.WithError(err).Error("failed to write import report")
		conn.Close()
		os.Exit(1)
	}
}

type importReport struct {
	ingestion.Summary
	Issues []domain.ImportLogEntry `json:"issues,omitempty"`
}

// writeReport prints the run summary, followed by the run's recorded issues
// when issues is set.
func writeReport(ctx context.Context, w io.Writer, summary ingestion.Summary, issues repository.ImportLogRepository) error {
	report := importReport{Summary: summary}
	if issues != nil {
		for offset := 0; ; offset += repository.DefaultImportLogLimit {
			page, err := issues.List(ctx, summary.RunID, repository.DefaultImportLogLimit, offset)
			if err != nil {
				return err
			}
			report.Issues = append(report.Issues, page...)
			if len(page) < repository.DefaultImportLogLimit {
				break
			}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
