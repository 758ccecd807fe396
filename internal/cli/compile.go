package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/compiler"
	"github.com/roach88/smartfin/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is a compiled contract and what deploying it creates.
type CompilationResult struct {
	Source         string                     `json:"source"`
	Notation       string                     `json:"notation"`
	Definition     []int64                    `json:"definition"`
	DefinitionHash string                     `json:"definition_hash"`
	Horizon        string                     `json:"horizon"`
	OrChoices      int                        `json:"or_choices"`
	Observables    int                        `json:"observables"`
	AnytimeSlots   int                        `json:"anytime_slots"`
	Warnings       []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <contract>",
		Short: "Compile a contract to its integer definition",
		Long: `Compile a contract to the integer definition accepted by deploy.

The contract may be a .cue document, a file holding prefix notation,
inline prefix notation, or a JSON definition array to decompile.

Examples:
  smartfin compile swap.cue
  smartfin compile "truncate 10 scale 5 one"
  smartfin compile "[2,1,6,1]" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the definition array to a file")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Loaded %s contract", loaded.Source)

	if compiler.HasErrors(loaded.Findings) {
		return outputFindings(formatter, loaded.Findings)
	}

	result, err := buildCompilationResult(loaded)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	if opts.Output != "" {
		if err := writeDefinition(result.Definition, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// buildCompilationResult decodes the definition once to count the
// external-input slots a deployment will create.
func buildCompilationResult(loaded *LoadResult) (*CompilationResult, error) {
	tables := combinator.NewTables()
	root, err := combinator.DecodeDefinition(loaded.Definition, tables)
	if err != nil {
		return nil, err
	}
	return &CompilationResult{
		Source:         loaded.Source,
		Notation:       loaded.Expr.String(),
		Definition:     loaded.Definition,
		DefinitionHash: ir.DefinitionHash(loaded.Definition),
		Horizon:        root.Horizon().String(),
		OrChoices:      len(tables.OrChoices),
		Observables:    len(tables.Observables),
		AnytimeSlots:   len(tables.Anytime),
		Warnings:       loaded.Findings,
	}, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s contract\n\n", result.Source)
	fmt.Fprintf(w, "Notation:   %s\n", result.Notation)
	def, _ := json.Marshal(result.Definition)
	fmt.Fprintf(w, "Definition: %s\n", def)
	fmt.Fprintf(w, "Hash:       %s\n", result.DefinitionHash)
	fmt.Fprintf(w, "Horizon:    %s\n", result.Horizon)
	fmt.Fprintf(w, "Slots:      %d or-choice(s), %d observable(s), %d anytime\n",
		result.OrChoices, result.Observables, result.AnytimeSlots)

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warning.Error())
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote definition to %s\n", outputFile)
	}
	return nil
}

// outputCompileError outputs a loading or compilation error.
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeCompile, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if formatter.Format != "json" && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
	}
	_ = formatter.Error(code, message, nil)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputFindings reports validation findings that block compilation.
func outputFindings(formatter *OutputFormatter, findings []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("contract has %d finding(s)", len(findings)),
			},
			Data: findings,
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, f := range findings {
			fmt.Fprintf(formatter.Writer, "  %s %s\n", f.Severity, f.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(findings)))
}

// writeDefinition writes the definition array as JSON, readable by
// LoadContract.
func writeDefinition(def []int64, filename string) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshaling definition: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
