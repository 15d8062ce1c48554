// run.go implements `woven run`, following the shape of the teacher's
// internal/cli/run.go: parse flags and workflow input, build the engine,
// execute, display the result, and exit with a status-appropriate code.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danrygg/wovenflow/internal/instance"
	"github.com/danrygg/wovenflow/internal/registry"
)

const (
	exitOK                 = 0
	exitValidationFailure  = 1
	exitExecutionFault     = 2
	exitCancelled          = 3
	exitOperationalFailure = 4
)

var (
	runInput  string
	runResume string
)

var runCmd = &cobra.Command{
	Use:   "run [workflow.yaml]",
	Short: "Execute a workflow document",
	Long: `Execute a Serverless Workflow DSL document from a YAML or JSON file.

The run command parses and validates the document, then drives a fresh
Workflow Instance to a terminal state, or resumes a previously faulted or
suspended instance when --resume is given.

Examples:
  woven run workflow.yaml --input '{"a":10,"b":5}'
  woven run workflow.yaml --resume 3c9d2e4a-8f41-4e77-9b7a-2e6e4c9f1a20
  woven run workflow.yaml --cache-provider sqlite --sqlite-db-url file:woven.db`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runInput, "input", "{}", "JSON-encoded workflow input")
	runCmd.Flags().StringVar(&runResume, "resume", "", "resume a previously started instance by id instead of starting a new one")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	workflowPath := args[0]
	log := GetLogger()

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

	var input map[string]interface{}
	if err := json.Unmarshal([]byte(runInput), &input); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --input JSON: %v\n", err)
		os.Exit(exitOperationalFailure)
	}

	ctx := context.Background()
	eng, err := BuildEngine(ctx, engineConfigFromFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build engine: %v\n", err)
		os.Exit(exitOperationalFailure)
	}
	defer eng.Close()

	eng.Registry.Register(wf)

	log.Info("executing workflow").Str("path", workflowPath).Send()

	var inst *instance.Instance
	var runErr error
	if runResume != "" {
		inst, runErr = eng.Scheduler.Resume(ctx, wf, runResume)
	} else {
		inst, runErr = eng.Scheduler.Start(ctx, wf, input)
	}
	if runErr != nil {
		log.Error("workflow did not complete", runErr).Str("path", workflowPath).Send()
	}

	displayInstance(inst, format)
	os.Exit(exitCodeFor(inst))
	return nil
}

func exitCodeFor(inst *instance.Instance) int {
	if inst == nil {
		return exitOperationalFailure
	}
	switch inst.Status {
	case instance.StatusCompleted:
		return exitOK
	case instance.StatusCancelled:
		return exitCancelled
	case instance.StatusFaulted:
		return exitExecutionFault
	default:
		return exitOperationalFailure
	}
}

func displayInstance(inst *instance.Instance, format string) {
	if inst == nil {
		return
	}
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{
			"instance_id": inst.ID,
			"status":      inst.Status,
			"output":      inst.Output,
			"problem":     inst.Problem,
		})
		return
	}

	switch inst.Status {
	case instance.StatusCompleted:
		fmt.Printf("completed: %s\n", inst.ID)
		out, _ := json.MarshalIndent(inst.Output, "", "  ")
		fmt.Println(string(out))
	case instance.StatusFaulted:
		fmt.Fprintf(os.Stderr, "faulted: %s\n", inst.ID)
		if inst.Problem != nil {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", inst.Problem.Title, inst.Problem.Detail)
		}
	case instance.StatusCancelled:
		fmt.Fprintf(os.Stderr, "cancelled: %s\n", inst.ID)
	default:
		fmt.Printf("%s: %s\n", inst.Status, inst.ID)
	}
}
