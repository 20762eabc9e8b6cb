package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type downloadPayload struct {
	AudiobookID string `json:"audiobook_id"`
	Title       string `json:"title"`
	Chapters    []struct {
		Chapter  int     `json:"chapter"`
		Title    string  `json:"title"`
		URL      string  `json:"url"`
		Duration float64 `json:"duration"`
	} `json:"chapters"`
	TotalChapters int `json:"total_chapters"`
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "chapters <audiobook-id>",
		Short: "List the playable chapters of an audiobook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var download downloadPayload
			if err := ctx.getJSON(cmd.Context(), "/api/download/"+args[0], &download); err != nil {
				if isNotFound(err) {
					return fmt.Errorf("audiobook %s not found", args[0])
				}
				return err
			}
			if jsonOut {
				return writeJSON(cmd, download)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d chapters)\n", download.Title, download.TotalChapters)

			rows := make([][]string, 0, len(download.Chapters))
			for _, chapter := range download.Chapters {
				rows = append(rows, []string{
					strconv.Itoa(chapter.Chapter),
					chapter.Title,
					formatDuration(chapter.Duration),
					chapter.URL,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Title", "Duration", "URL"}, rows, 0, 2))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	minutes := int(d.Minutes())
	return fmt.Sprintf("%d:%02d", minutes, int(d.Seconds())-minutes*60)
}
