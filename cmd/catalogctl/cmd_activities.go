package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"catalog-workers/internal/common/validation"
	"catalog-workers/pkg/registry"

	asm "catalog-workers/internal/workers/catalog/assemble-spreadsheet"
	cos "catalog-workers/internal/workers/catalog/choose-options"
	ext "catalog-workers/internal/workers/catalog/extract-schema"
	gmc "catalog-workers/internal/workers/catalog/generate-main-content"
	gsp "catalog-workers/internal/workers/catalog/generate-spreadsheet"
	prc "catalog-workers/internal/workers/catalog/process-chunk"
)

var registryPath string

// workerTaskTypes are the task types the worker manager subscribes to.
var workerTaskTypes = []string{
	asm.TaskType,
	cos.TaskType,
	ext.TaskType,
	gmc.TaskType,
	gsp.TaskType,
	prc.TaskType,
}

// activitiesCmd reads the activity registry that documents the BPMN service tasks
var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Inspect the catalog activity registry",
}

var activitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE:  runActivitiesList,
}

var activitiesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry against the workers in this build",
	RunE:  runActivitiesValidate,
}

func init() {
	activitiesCmd.PersistentFlags().StringVar(&registryPath, "registry", registry.DefaultPath, "Path to the activity registry")
	activitiesCmd.AddCommand(activitiesListCmd, activitiesValidateCmd)
	rootCmd.AddCommand(activitiesCmd)
}

func runActivitiesList(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}
	type row struct {
		ID       string `json:"id"`
		TaskType string `json:"taskType"`
		Category string `json:"category"`
		Timeout  string `json:"timeout"`
		Retries  int    `json:"retries"`
	}
	rows := make([]row, 0, len(reg.Activities))
	for _, a := range reg.Activities {
		rows = append(rows, row{ID: a.ID, TaskType: a.TaskType, Category: a.Category, Timeout: a.Timeout, Retries: a.Retries})
	}
	return printJSON(cmd.OutOrStdout(), rows)
}

func runActivitiesValidate(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return err
	}

	problems := reg.Validate()
	for _, a := range reg.Activities {
		for _, doc := range []struct {
			name   string
			schema []byte
		}{{"inputSchema", a.InputSchema}, {"outputSchema", a.OutputSchema}} {
			if len(doc.schema) == 0 {
				continue
			}
			if _, err := validation.Compile(string(doc.schema)); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %s: %v", a.ID, doc.name, err))
			}
		}
	}
	for _, t := range reg.Missing(workerTaskTypes) {
		problems = append(problems, fmt.Sprintf("worker %q has no registry entry", t))
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(cmd.ErrOrStderr(), p)
		}
		return fmt.Errorf("%d registry problems", len(problems))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registry OK: %d activities\n", len(reg.Activities))
	return nil
}
