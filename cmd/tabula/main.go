package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/config"
	"github.com/joacominatel/tabula/internal/format"
	"github.com/joacominatel/tabula/internal/logging"
	"github.com/joacominatel/tabula/internal/table"
	"github.com/joacominatel/tabula/internal/tui"
)

const startupTimeout = time.Minute

type options struct {
	database  string
	conn      string
	files     map[format.Format]*string
	tableName string
	config    string
	logLevel  string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.database, "database", "", "SQLite file or postgresql:// URL to connect to")
	flag.StringVar(&o.database, "d", "", "shorthand for --database")
	flag.StringVar(&o.conn, "conn", "", "saved connection to use")
	o.files = map[format.Format]*string{
		format.CSV:  flag.String("csv", "", "CSV file to load"),
		format.XLSX: flag.String("xlsx", "", "Excel workbook to load"),
		format.ODS:  flag.String("ods", "", "OpenDocument spreadsheet to load"),
		format.PDF:  flag.String("pdf", "", "PDF file to load a table from"),
		format.JSON: flag.String("json", "", "JSON table to load"),
	}
	flag.StringVar(&o.tableName, "table", "", "start with this table, loaded from the database when it exists there")
	flag.StringVar(&o.tableName, "tb", "", "shorthand for --table")
	flag.StringVar(&o.config, "config", "", "config file (default ~/.tabula/config.yaml)")
	flag.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = &config.Config{DatabaseDir: "databases", Settings: config.DefaultSettings()}
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if path, err := cfg.LogPath(); err == nil {
		if closer, err := logging.Setup(level, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		} else {
			defer closer.Close()
		}
	}

	ctx := logging.WithSession(context.Background())
	logging.FromContext(ctx).Info("tabula started", "database_dir", cfg.DatabaseDir)

	service := app.NewService(cfg.DatabaseDir)
	model, err := setup(ctx, service, cfg, opts)
	if err != nil {
		_ = service.Disconnect()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		_ = service.Disconnect()
		log.Fatalf("Error running program: %v", err)
	}

	if err := service.Disconnect(); err != nil {
		logging.FromContext(ctx).Warn("disconnect failed", "err", err)
	}
	logging.FromContext(ctx).Info("tabula stopped")
}

// setup connects and loads whatever the flags ask for and builds the
// starting model.
func setup(ctx context.Context, service *app.Service, cfg *config.Config, opts options) (tui.Model, error) {
	sctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	var notice string
	switch {
	case opts.database != "" && opts.conn != "":
		return tui.Model{}, errors.New("use either --database or --conn, not both")
	case opts.database != "":
		if err := service.Connect(sctx, opts.database); err != nil {
			return tui.Model{}, err
		}
		notice = "Connected to " + service.DatabaseName()
	case opts.conn != "":
		conn, err := config.ResolveConnection(cfg, opts.conn)
		if err != nil {
			return tui.Model{}, &app.ErrConfig{Cause: err}
		}
		if err := service.Connect(sctx, conn.DSN()); err != nil {
			return tui.Model{}, err
		}
		notice = fmt.Sprintf("Connected to %s (%s)", opts.conn, conn.DisplayString())
	}

	tbl, err := loadFile(sctx, service, cfg, opts)
	if err != nil {
		return tui.Model{}, err
	}
	if tbl != nil {
		notice = fmt.Sprintf("Loaded %q: %d column(s), %d row(s)", tbl.Name(), tbl.NumColumns(), tbl.NumRows())
	}

	if tbl == nil && opts.tableName != "" && service.Connected() {
		names, err := service.ListTables(sctx)
		if err != nil {
			return tui.Model{}, err
		}
		if slices.Contains(names, opts.tableName) {
			if tbl, err = service.LoadTable(sctx, opts.tableName); err != nil {
				return tui.Model{}, err
			}
			notice = fmt.Sprintf("Loaded %q from %s", opts.tableName, service.DatabaseName())
		}
	}

	return tui.NewModel(ctx, service, cfg, tui.Options{
		Table:     tbl,
		TableName: opts.tableName,
		Notice:    notice,
	}), nil
}

// loadFile imports the one file named by a format flag, if any.
func loadFile(ctx context.Context, service *app.Service, cfg *config.Config, opts options) (*table.Table, error) {
	var (
		f    format.Format
		path string
	)
	for _, candidate := range []format.Format{format.CSV, format.XLSX, format.ODS, format.PDF, format.JSON} {
		p := *opts.files[candidate]
		if p == "" {
			continue
		}
		if path != "" {
			return nil, errors.New("load one file at a time")
		}
		f, path = candidate, p
	}
	if path == "" {
		return nil, nil
	}
	return service.ImportFile(ctx, f, path, format.Options{InferTypes: cfg.Settings.InferDataTypes})
}
