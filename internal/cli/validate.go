// validate.go implements `woven validate`, the teacher's
// internal/cli/validate.go retargeted from orchestrator dependency-graph
// validation to the Graph Validator (spec.md §4.2): parse, then run
// validatorx.Validate without constructing a Scheduler or dispatching
// anything.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danrygg/wovenflow/internal/registry"
	"github.com/danrygg/wovenflow/internal/validatorx"
)

var validateCmd = &cobra.Command{
	Use:   "validate [workflow.yaml]",
	Short: "Validate a workflow document without executing it",
	Long: `Validate a Serverless Workflow DSL document for structural and reference
errors without executing any tasks: document metadata, then-target
resolution, switch branches, try/catch retry policies, and use. references.

Examples:
  woven validate workflow.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	workflowPath := args[0]
	log := GetLogger()
	log.Info("validating workflow").Str("path", workflowPath).Send()

	data, err := os.ReadFile(workflowPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", workflowPath, err)
		os.Exit(exitOperationalFailure)
	}

	wf, err := registry.NewYAMLParser().Parse(workflowPath, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(exitValidationFailure)
	}

	if err := validatorx.Validate(wf); err != nil {
		fmt.Fprintf(os.Stderr, "validation failed:\n%v\n", err)
		os.Exit(exitValidationFailure)
	}

	fmt.Println("workflow validation passed")
	return nil
}
