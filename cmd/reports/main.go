// Command reports runs one report query against the usage database and
// prints the result as JSON or writes it to an xlsx workbook.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rpattn/slicereports/internal/config"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/export"
	"github.com/rpattn/slicereports/internal/logger"
	"github.com/rpattn/slicereports/internal/metrics"
	"github.com/rpattn/slicereports/internal/reports"
)

const usage = `usage: reports [flags] <project|projects|users|slices|slivers|hosts|sites|memberships>`

func main() {
	fs := pflag.NewFlagSet("reports", pflag.ExitOnError)
	configPath := fs.String("config", ".", "directory containing config.yaml")
	config.RegisterFlags(fs)
	query := registerQueryFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
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

	svc := reports.New(conn,
		reports.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		reports.WithDefaultWindow(cfg.DefaultWindow),
		reports.WithPageLimits(cfg.MaxPerPage, cfg.MaxMembershipPerPage),
	)

	if err := run(ctx, svc, fs.Arg(0), query); err != nil {
		log.WithError(err).Error("report failed")
		conn.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *reports.Service, kind string, q *queryFlags) error {
	var (
		result any
		sheet  export.Sheet
	)

	switch kind {
	case "memberships":
		f, err := q.membershipFilter()
		if err != nil {
			return err
		}
		page, err := svc.Memberships(ctx, f)
		if err != nil {
			return err
		}
		result, sheet = page, export.FromPage(page)

	case "project":
		ids := q.list("project-id")
		if len(ids) != 1 {
			return fmt.Errorf("project needs exactly one --project-id")
		}
		project, err := svc.Project(ctx, ids[0])
		if err != nil {
			return err
		}
		result, sheet = project, export.FromRecords("projects", []domain.ProjectRecord{project})

	case "sites":
		sites, err := svc.Sites(ctx)
		if err != nil {
			return err
		}
		result, sheet = map[string]any{"total": len(sites), "sites": sites}, export.FromRecords("sites", sites)

	default:
		f, err := q.filter()
		if err != nil {
			return err
		}
		switch kind {
		case "projects":
			page, err := svc.Projects(ctx, f)
			if err != nil {
				return err
			}
			result, sheet = page, export.FromPage(page)
		case "users":
			page, err := svc.Users(ctx, f)
			if err != nil {
				return err
			}
			result, sheet = page, export.FromPage(page)
		case "slices":
			page, err := svc.Slices(ctx, f)
			if err != nil {
				return err
			}
			result, sheet = page, export.FromPage(page)
		case "slivers":
			page, err := svc.Slivers(ctx, f)
			if err != nil {
				return err
			}
			result, sheet = page, export.FromPage(page)
		case "hosts":
			page, err := svc.Hosts(ctx, f)
			if err != nil {
				return err
			}
			result, sheet = page, export.FromPage(page)
			if q.bySite {
				result = map[string]any{"total": page.Total, "sites": domain.GroupHostsBySite(page.Items)}
			}
		default:
			return fmt.Errorf("unknown report %q\n%s", kind, usage)
		}
	}

	if q.xlsx != "" {
		return writeXLSX(q.xlsx, sheet)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeXLSX(path string, sheet export.Sheet) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteWorkbook(out, sheet); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
