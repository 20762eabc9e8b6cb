package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookcast/internal/config"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var title string
	var wait bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <user-id> <epub-file>",
		Short: "Submit an EPUB for audiobook conversion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := strings.TrimSpace(args[0])
			if userID == "" {
				return errors.New("user id is required")
			}

			path, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read epub: %w", err)
			}

			bookTitle := strings.TrimSpace(title)
			if bookTitle == "" {
				bookTitle = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			var submitted struct {
				JobID     string `json:"job_id"`
				Status    string `json:"status"`
				Message   string `json:"message"`
				StatusURL string `json:"status_url"`
			}
			payload := map[string]string{
				"user_id":    userID,
				"book_title": bookTitle,
				"epub_data":  base64.StdEncoding.EncodeToString(data),
			}
			if err := ctx.postJSON(cmd.Context(), "/api/process-epub", payload, &submitted); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !wait {
				if jsonOut {
					return writeJSON(cmd, submitted)
				}
				fmt.Fprintf(out, "Submitted %q as job %s\n", bookTitle, submitted.JobID)
				fmt.Fprintf(out, "Track it with `bookcast job %s`\n", submitted.JobID)
				return nil
			}

			job, err := pollJob(cmd, ctx, submitted.JobID)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}
			printJobStatus(cmd, job)
			if job.Status == "failed" {
				return fmt.Errorf("job %s failed: %s", job.JobID, job.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Book title (defaults to the file name)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the conversion to finish")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func pollJob(cmd *cobra.Command, ctx *commandContext, jobID string) (jobStatusPayload, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastMessage := ""
	for {
		var job jobStatusPayload
		if err := ctx.getJSON(cmd.Context(), "/api/job-status/"+jobID, &job); err != nil {
			return jobStatusPayload{}, err
		}
		if job.Status == "completed" || job.Status == "failed" {
			return job, nil
		}
		if job.Message != "" && job.Message != lastMessage {
			fmt.Fprintf(cmd.OutOrStdout(), "  %3d%% %s\n", job.Progress, job.Message)
			lastMessage = job.Message
		}

		select {
		case <-cmd.Context().Done():
			return jobStatusPayload{}, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}
