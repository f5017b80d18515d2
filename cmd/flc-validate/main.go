// Command flc-validate runs the format-logical control pipeline against a
// report XML document and a metaForm schema XML document, printing every
// validation error the pipeline produces.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/WoolenSweater/rosstat-flc/internal/obslog"
	"github.com/WoolenSweater/rosstat-flc/internal/xmlio"
	"github.com/WoolenSweater/rosstat-flc/validate"
)

var (
	schemaPath string
	reportPath string
	skipWarns  bool
	asJSON     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flc-validate",
		Short:         "Format-logical control validator for Rosstat reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newValidateCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a report against a schema",
		RunE:  runValidate,
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the metaForm schema XML document (required)")
	cmd.Flags().StringVar(&reportPath, "report", "", "path to the report XML document (required)")
	cmd.Flags().BoolVar(&skipWarns, "skip-warns", false, "skip previous-period control warnings instead of raising them")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print errors as a JSON array instead of plain text")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("report")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	if asJSON {
		// --json mode reserves stdout for the error array; push the
		// structured stage log to stderr as plain JSON lines instead of
		// the human-readable console writer.
		obslog.Init(os.Stderr, obslog.Logger.GetLevel())
	}

	sch, err := xmlio.ParseSchema(schemaPath, skipWarns)
	if err != nil {
		return fmt.Errorf("loading schema %s: %w", schemaPath, err)
	}
	rep, err := xmlio.ParseReport(reportPath)
	if err != nil {
		return fmt.Errorf("loading report %s: %w", reportPath, err)
	}

	errs := validate.Run(sch, rep)
	if err := printErrors(cmd, errs); err != nil {
		return err
	}
	if len(errs) > 0 {
		os.Exit(1)
	}
	return nil
}

func printErrors(cmd *cobra.Command, errs []validate.Error) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(errs)
	}
	if len(errs) == 0 {
		fmt.Fprintln(out, "отчёт прошёл все проверки")
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(out, "[%s] %s: %s\n", e.Code, e.Name, e.Message)
	}
	return nil
}
