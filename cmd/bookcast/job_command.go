package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type jobStatusPayload struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	BookTitle string    `json:"book_title"`
	Chapters  int       `json:"chapters"`
	CreatedAt time.Time `json:"created_at"`
}

func newJobCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show the status of a conversion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job jobStatusPayload
			if err := ctx.getJSON(cmd.Context(), "/api/job-status/"+args[0], &job); err != nil {
				if isNotFound(err) {
					return fmt.Errorf("job %s not found", args[0])
				}
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			printJobStatus(cmd, job)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printJobStatus(cmd *cobra.Command, job jobStatusPayload) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	kind := statusInfo
	switch job.Status {
	case "completed":
		kind = statusOK
	case "failed":
		kind = statusError
	}

	title := job.BookTitle
	if title == "" {
		title = job.JobID
	}
	fmt.Fprintln(out, renderStatusLine(title, kind, fmt.Sprintf("%s (%d%%)", job.Status, job.Progress), colorize))
	if job.Message != "" {
		fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Message:", job.Message)
	}
	if job.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.Error, colorize))
	}
	if job.Chapters > 0 {
		fmt.Fprintf(out, "  %-*s %d\n", statusLabelWidth, "Chapters:", job.Chapters)
	}
}
