package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fjmerc/filesender-client/internal/utils"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective upload configuration",
		Long: `Display the upload limits in effect: local FILESENDER_* settings overlaid
with the server's published info.

Example:
  filesender-cli config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkConfig(); err != nil {
				return err
			}

			client, err := newClient("")
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd.Context(), client)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "FileSender Upload Configuration\n")
			fmt.Fprintf(out, "URL: %s\n", client.BaseURL())
			fmt.Fprintln(out, strings.Repeat("─", 40))
			fmt.Fprintf(out, "%-25s %d\n", "Max Files:", cfg.MaxTransferFiles)
			fmt.Fprintf(out, "%-25s %s\n", "Max Transfer Size:", utils.FormatBytes(cfg.MaxTransferSize))
			fmt.Fprintf(out, "%-25s %d\n", "Max Recipients:", cfg.MaxTransferRecipients)
			fmt.Fprintf(out, "%-25s %s\n", "Chunk Size:", utils.FormatBytes(cfg.UploadChunkSize))
			fmt.Fprintf(out, "%-25s %d days\n", "Default Expiry:", cfg.DefaultDaysValid)
			fmt.Fprintf(out, "%-25s %s\n", "Banned Extensions:", cfg.BanExtension)
			fmt.Fprintf(out, "%-25s %s\n", "Chunk Upload Security:", cfg.ChunkUploadSecurity)
			fmt.Fprintf(out, "%-25s %v (%d workers)\n", "Parallel Upload:", cfg.TerasenderEnabled, cfg.TerasenderWorkerCount)
			fmt.Fprintf(out, "%-25s %s\n", "Retry Policy:", cfg.RetryPolicy)
			fmt.Fprintln(out, strings.Repeat("─", 40))

			return nil
		},
	}

	return cmd
}
