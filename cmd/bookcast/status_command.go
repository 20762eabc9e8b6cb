package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type healthPayload struct {
	Status      string   `json:"status"`
	Service     string   `json:"service"`
	TTSBackends []string `json:"tts_backends"`
	Storage     string   `json:"storage"`
	Timestamp   string   `json:"timestamp"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health healthPayload
			if err := ctx.getJSON(cmd.Context(), "/health", &health); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, health)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			daemonKind := statusOK
			if health.Status != "healthy" {
				daemonKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, health.Status, colorize))

			storageKind := statusOK
			if health.Storage != "connected" {
				storageKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Storage", storageKind, health.Storage, colorize))

			ttsKind := statusOK
			backends := strings.Join(health.TTSBackends, ", ")
			if backends == "" || backends == "none" {
				ttsKind = statusWarn
				backends = "none configured"
			}
			fmt.Fprintln(out, renderStatusLine("TTS", ttsKind, backends, colorize))
			fmt.Fprintln(out, renderStatusLine("API", statusInfo, ctx.apiBase(), colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
