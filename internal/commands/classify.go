package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/gastos-tracker/internal/domain/categorization"
)

func newClassifyCommand() *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "classify <description>...",
		Short: "Print the category assigned to a bank description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.OutOrStdout(), categorization.NewDefaultEngine(), strings.Join(args, " "), explain)
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "show the matching rule and keywords")

	return cmd
}

func runClassify(out io.Writer, engine *categorization.Engine, description string, explain bool) error {
	if !explain {
		_, err := fmt.Fprintln(out, engine.Classify(description))
		return err
	}

	m, ok := engine.Match(description)
	if !ok {
		_, err := fmt.Fprintf(out, "%s (no rule matched, %d checked)\n", engine.Fallback(), engine.RuleCount())
		return err
	}
	_, err := fmt.Fprintf(out, "%s (rule %d: %s)\n", m.Category, m.Rule, strings.Join(m.Keywords, ", "))
	return err
}
