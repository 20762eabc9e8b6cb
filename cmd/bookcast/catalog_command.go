package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type catalogPayload struct {
	Audiobooks []struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Chapters    int       `json:"chapters"`
		CreatedAt   time.Time `json:"created_at"`
		DownloadURL string    `json:"download_url"`
	} `json:"audiobooks"`
	Total int `json:"total"`
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "catalog <user-id>",
		Short: "List a user's finished audiobooks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var catalog catalogPayload
			if err := ctx.getJSON(cmd.Context(), "/api/audiobooks/"+args[0], &catalog); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, catalog)
			}

			out := cmd.OutOrStdout()
			if catalog.Total == 0 {
				fmt.Fprintf(out, "No audiobooks for %s\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(catalog.Audiobooks))
			for _, book := range catalog.Audiobooks {
				rows = append(rows, []string{
					book.ID,
					book.Title,
					strconv.Itoa(book.Chapters),
					book.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Chapters", "Created"}, rows, 2))
			fmt.Fprintf(out, "%d audiobooks\n", catalog.Total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
