package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
)

const (
	exitIO       = 1
	exitPipeline = 2
)

// exitError carries the process exit code. The message has already been printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "remixctl",
		Short:         "Turn raw model output into validated remix analysis records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExtractCmd(), newCheckCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	var (
		deepRepair     bool
		previewLimit   int
		fallbackTokens []string
		showStrategy   bool
	)
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract, validate and repair a record from raw model output",
		Long: "Reads raw model output from a file or stdin, runs the extraction pipeline\n" +
			"and prints the finished record as JSON. Pipeline errors are printed to\n" +
			"stderr as {error, message, details} and exit with status 2.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &exitError{code: exitIO, err: err}
			}

			opts := analysis.Options{PreviewLimit: previewLimit, DeepRepair: deepRepair}
			if cmd.Flags().Changed("fallback-tokens") {
				opts.FallbackTokens = fallbackTokens
			}
			out, err := analysis.New(opts).RunDetailed(string(raw))
			if err != nil {
				writeError(cmd.ErrOrStderr(), err)
				return &exitError{code: exitPipeline, err: err}
			}

			var v any = out.Record
			if showStrategy {
				v = map[string]any{"record": out.Record, "strategy": out.Strategy}
			}
			return writeIndented(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().BoolVar(&deepRepair, "deep-repair", false, "run jsonrepair when the regex-level repair is not enough")
	cmd.Flags().IntVar(&previewLimit, "preview-limit", 500, "max runes of raw and cleaned text carried in errors")
	cmd.Flags().StringSliceVar(&fallbackTokens, "fallback-tokens", nil, "comma separated vocabulary used to pad keyTokens")
	cmd.Flags().BoolVar(&showStrategy, "show-strategy", false, "wrap the record with the parse strategy that produced it")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file|-]",
		Short: "Check that a finished record satisfies the record invariants",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &exitError{code: exitIO, err: err}
			}

			var rec analysis.Record
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&rec); err != nil {
				err = fmt.Errorf("decode record: %w", err)
				writeError(cmd.ErrOrStderr(), err)
				return &exitError{code: exitPipeline, err: err}
			}
			if err := rec.Validate(); err != nil {
				writeError(cmd.ErrOrStderr(), err)
				return &exitError{code: exitPipeline, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

func writeError(w io.Writer, err error) {
	body := map[string]any{"error": "invalid_input", "message": err.Error()}
	var pe *analysis.Error
	if errors.As(err, &pe) {
		body["error"] = string(pe.Kind)
		body["details"] = pe.Details()
	}
	_ = writeIndented(w, body)
}

func writeIndented(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimSpace(string(b)))
	return err
}
