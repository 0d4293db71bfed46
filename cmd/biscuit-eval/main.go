// Command biscuit-eval loads a scenario file (JSON or YAML) describing an
// authority block, zero or more extra blocks, and an authorizer block,
// runs Authorize against it, and prints the verdict.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	biscuit "github.com/biscuit-eval/datalog"
	"github.com/biscuit-eval/datalog/loadercfg"
	"github.com/biscuit-eval/datalog/render"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	verbose  bool
	logLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "biscuit-eval <scenario-file>",
		Short: "Run the scoped Datalog authorizer against a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every derived fact on success")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "evaluator log level (trace|debug|info|warn|error|off)")
	return root
}

func runEval(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading scenario file: %w", err)
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		if jsonErr := json.Unmarshal(raw, &parsed); jsonErr != nil {
			return fmt.Errorf("scenario file is neither valid YAML nor JSON: %w", err)
		}
	}

	scenario, err := loadercfg.Decode(parsed)
	if err != nil {
		return fmt.Errorf("decoding scenario: %w", err)
	}
	authority, extras, authorizer, limits, err := scenario.Build()
	if err != nil {
		return fmt.Errorf("building scenario: %w", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "biscuit-eval",
		Level: hclog.LevelFromString(logLevel),
	})

	success, err := biscuit.Authorize(authority, extras, authorizer, limits, biscuit.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "verdict: deny")
		fmt.Fprintln(cmd.OutOrStdout(), "reason:", err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "verdict: allow")
	fmt.Fprintln(cmd.OutOrStdout(), "matched query:", render.QueryItem(success.Matched.QueryItem))
	for i, b := range success.Matched.Bindings {
		if len(b) == 0 {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  binding %d:\n", i)
		for k, v := range b {
			fmt.Fprintf(cmd.OutOrStdout(), "    $%s = %s\n", k, render.Value(v))
		}
	}
	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), "derived facts:")
		fmt.Fprint(cmd.OutOrStdout(), render.FactGroup(success.AllFacts))
	}
	return nil
}
