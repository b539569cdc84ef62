// Package importer implements the cobra command that loads an XLSX export
// into the Postgres table served by the dashboard.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/dataset"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/filter"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
	"github.com/xela07ax/cintia-dashboard/internal/repository/postgres"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

type options struct {
	cfgFile string
	sheet   string
	table   string
	dryRun  bool
}

// NewRootCommand constructs the importer command.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "importer <file.xlsx>",
		Short: "Import a platform-access workbook into Postgres",
		Long: `importer reads the professor platform-access workbook, validates the
required columns (idusuario, facultad, programa, accesos_plataforma) and
replaces the contents of the records table in a single transaction.

Row order is kept: the dashboard relies on it to pick the first
occurrence of a duplicated (idusuario, programa) pair.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.cfgFile, "config", "", "config file (default: ./config.yaml or ./configs/config.yaml)")
	f.StringVar(&opts.sheet, "sheet", "", "worksheet name (default: first sheet)")
	f.StringVar(&opts.table, "table", "", "target table (default: database.record_table)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "parse and summarize the workbook without touching the database")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	return cmd
}

func run(ctx context.Context, out io.Writer, file string, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := infra.LoadConfig(opts.cfgFile)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer logger.Sync()
	logger = logger.Named("importer")

	records, err := dataset.NewXLSXSource(file, opts.sheet).Load(ctx)
	if err != nil {
		return err
	}
	printSummary(out, file, records)

	if opts.dryRun {
		return nil
	}
	if cfg.Database.URL == "" {
		return &ExitError{Code: 2, Err: errors.New("database.url is required (set DATABASE_URL or config)")}
	}

	table := cfg.Database.RecordTable
	if opts.table != "" {
		table = opts.table
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, table); err != nil {
		return err
	}

	n, err := postgres.NewRecordRepo(pool, table).ReplaceAll(ctx, records)
	if err != nil {
		return err
	}

	logger.Info("workbook imported", zap.String("file", file), zap.String("table", table), zap.Int64("rows", n))
	fmt.Fprintf(out, "imported %d rows into %s\n", n, table)
	return nil
}

func printSummary(out io.Writer, file string, records []domain.AccessRecord) {
	missing := 0
	for _, r := range records {
		if !r.HasAccesses {
			missing++
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "file:\t%s\n", file)
	fmt.Fprintf(w, "records:\t%d\n", len(records))
	fmt.Fprintf(w, "missing accesses:\t%d\n", missing)
	fmt.Fprintf(w, "faculties:\t%d\n", len(filter.Faculties(records)))
	fmt.Fprintf(w, "programs:\t%d\n", len(filter.Programs(records, nil)))
	fmt.Fprintf(w, "version:\t%s\n", dataset.Fingerprint(records))
	_ = w.Flush()
}
