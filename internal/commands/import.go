package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/gastos-tracker/cmd/api"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/expense/repository"
	"github.com/FACorreiaa/gastos-tracker/internal/domain/import/normalizer"
	importservice "github.com/FACorreiaa/gastos-tracker/internal/domain/import/service"
)

func newImportCommand() *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import a bank statement spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			database, err := api.OpenDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			var store importservice.ExpenseStore = repository.NewPostgresExpenseRepository(database.Pool)
			if dryRun {
				// Compare against the stored expenses but write to a throwaway copy
				existing, err := store.List(ctx, repository.ListOptions{})
				if err != nil {
					return fmt.Errorf("loading expenses: %w", err)
				}
				store = repository.NewMemoryExpenseRepository(existing...)
			}

			svc := importservice.NewImportService(store, categorization.NewDefaultEngine(), api.ImportOptions(cfg), logger)
			if !dryRun {
				svc.WithNotifier(api.NewNotifier(cfg, logger))
			}

			return runImport(ctx, cmd.OutOrStdout(), svc, args[0], printOptions{JSON: asJSON, DryRun: dryRun})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without saving")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}

type printOptions struct {
	JSON   bool
	DryRun bool
}

func runImport(ctx context.Context, out io.Writer, svc *importservice.ImportService, path string, opts printOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	summary, err := svc.Import(ctx, f, filepath.Base(path))
	if err != nil {
		return err
	}
	return printSummary(out, summary, opts)
}

func printSummary(out io.Writer, s *importservice.Summary, opts printOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(out, "Archivo:     %s\n", s.Filename)
	fmt.Fprintf(out, "Filas:       %d\n", s.Rows)
	fmt.Fprintf(out, "Importados:  %d\n", s.Imported)
	fmt.Fprintf(out, "Duplicados:  %d\n", s.Duplicates)
	fmt.Fprintf(out, "Omitidos:    %d\n", s.Skipped)

	reasons := make([]normalizer.SkipReason, 0, len(s.SkipReasons))
	for r := range s.SkipReasons {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		fmt.Fprintf(out, "  %-20s %d\n", r, s.SkipReasons[r])
	}

	fmt.Fprintf(out, "Fallidos:    %d\n\n", s.Failed)
	fmt.Fprintln(out, s.Message)
	if opts.DryRun {
		fmt.Fprintln(out, "(simulación: no se guardó ningún gasto)")
	}
	return nil
}
