package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/herald"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the pages a build would create, as JSON",
	Long: `plan fetches every content type and resolves its pages without rendering
or writing anything. The result is printed as JSON on stdout. Absent
neighbours appear as null.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

type planOutput struct {
	ID         string        `json:"id"`
	State      string        `json:"state"`
	Skipped    bool          `json:"skipped"`
	FailedType string        `json:"failed_type,omitempty"`
	Error      string        `json:"error,omitempty"`
	Types      []planType    `json:"types"`
	Pages      []herald.Page `json:"pages"`
}

type planType struct {
	Name  string `json:"name"`
	Items int    `json:"items"`
	Pages int    `json:"pages"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := config.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := herald.NewPipeline(config, newClient(config, logger), herald.WithPipelineLogger(logger))
	report, reg, err := p.Plan(ctx)
	if report == nil {
		return err
	}

	out := planOutput{
		ID:         report.ID,
		State:      report.State.String(),
		Skipped:    report.Skipped,
		FailedType: report.FailedType,
		Types:      make([]planType, 0, len(report.Types)),
		Pages:      reg.Pages(),
	}
	if err != nil {
		out.Error = err.Error()
	}
	for _, t := range report.Types {
		out.Types = append(out.Types, planType{Name: t.Type, Items: t.Items, Pages: t.Pages})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return encErr
	}
	return err
}
