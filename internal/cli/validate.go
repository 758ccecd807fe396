package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Findings []compiler.ValidationError `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <contract>",
		Short: "Validate a contract without compiling it",
		Long: `Validate a contract and report every finding.

Errors block deployment. Warnings describe contracts that deploy but
likely do not do what the author intended, such as a then whose second
branch can never be reached.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadContract(arg)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	if compiler.HasErrors(loaded.Findings) {
		return outputFindings(formatter, loaded.Findings)
	}

	result := ValidationResult{Valid: true, Findings: loaded.Findings}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Contract is valid")
	for _, f := range loaded.Findings {
		fmt.Fprintf(formatter.Writer, "  %s %s\n", f.Severity, f.Error())
	}
	return nil
}
