package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
	formrepo "github.com/FACorreiaa/auto-qm-form/internal/domain/form/repository"
	formservice "github.com/FACorreiaa/auto-qm-form/internal/domain/form/service"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/standards"
	"github.com/FACorreiaa/auto-qm-form/pkg/config"
	"github.com/FACorreiaa/auto-qm-form/pkg/db"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "qmctl",
		Short:         "AutoQM maintenance and offline parsing tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newParseCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newCleanupCmd(opts),
		newFilesCmd(opts),
	)
	return root
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseOutput is what `qmctl parse` prints
type parseOutput struct {
	BudgetID string            `json:"budget_id"`
	Items    []parser.LineItem `json:"items"`
	Warnings []string          `json:"warnings"`
	Stats    parser.Summary    `json:"stats"`
}

func newParseCmd(_ *rootOptions) *cobra.Command {
	var budgetID string
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a budget CSV or XLSX file and print the line items as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			src := parser.Source{FileName: filepath.Base(path), FileType: parser.SourceTypeRaw}
			var res *parser.Result
			if strings.EqualFold(filepath.Ext(path), ".xlsx") {
				rows, err := parser.RowsFromXLSX(bytes.NewReader(data))
				if err != nil {
					return err
				}
				res, err = parser.ParseRows(rows, budgetID, src)
				if err != nil {
					return err
				}
			} else if res, err = parser.Parse(data, budgetID, src); err != nil {
				return err
			}

			warnings := res.Warnings
			if warnings == nil {
				warnings = []string{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(parseOutput{
				BudgetID: budgetID,
				Items:    res.Items,
				Warnings: warnings,
				Stats:    parser.Summarize(res.Items),
			})
		},
	}
	cmd.Flags().StringVar(&budgetID, "budget-id", "local", "Budget id stamped on every item")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDB(cmd.Context(), opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer database.Close()
			return nil
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert quality standards that are not in the library yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := loadSeed(file)
			if err != nil {
				return err
			}

			logger := opts.logger(cmd.ErrOrStderr())
			database, err := openDB(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			svc := standards.NewService(standards.NewRepository(database.Pool), nil, nil, logger)
			n, err := svc.Seed(cmd.Context(), seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d of %d standards\n", n, len(seed))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file (defaults to the built-in library)")
	return cmd
}

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove temp standards workspaces past the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.Form.TempRetentionDays
			}

			logger := opts.logger(cmd.ErrOrStderr())
			database, err := openDB(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer database.Close()

			svc := formservice.NewFormService(formrepo.NewPostgresFormRepository(database.Pool), nil, nil, nil, nil, days, logger)
			n, err := svc.ExpireTempFiles(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d temp files\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (defaults to FORM_TEMP_RETENTION_DAYS)")
	return cmd
}

func newFilesCmd(_ *rootOptions) *cobra.Command {
	files := &cobra.Command{
		Use:   "files",
		Short: "Inspect the file store",
	}

	var (
		root        string
		logicalType string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored files, optionally of one logical type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				root = cfg.Storage.LocalPath
			}
			store, err := storage.NewLocalStorage(root)
			if err != nil {
				return err
			}
			infos, err := store.List(cmd.Context(), logicalType)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tSIZE\tCREATED")
			for _, f := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.LogicalType, f.Name, f.Size, f.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&root, "root", "", "Storage root (defaults to FILE_STORAGE_ROOT)")
	list.Flags().StringVar(&logicalType, "type", "", "Logical type such as budget/raw or generated/form")

	files.AddCommand(list)
	return files
}

// openDB connects with the environment's settings and applies migrations
func openDB(ctx context.Context, logger *slog.Logger) (*db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	database, err := db.New(ctx, db.Config{DSN: cfg.Database.DSN(), MaxConns: 2}, logger)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func loadSeed(path string) ([]standards.QualityStandard, error) {
	if path == "" {
		return standards.DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return standards.LoadSeed(f)
}
