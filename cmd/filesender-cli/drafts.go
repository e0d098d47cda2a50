package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fjmerc/filesender-client/internal/repository"
	"github.com/fjmerc/filesender-client/internal/utils"
	filesender "github.com/fjmerc/filesender-client/sdk/go"
)

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage local snapshots of unfinished transfers",
		Long: `Drafts record registered transfers and the bytes uploaded so far.
They are removed when a transfer completes or is stopped.

Examples:
  filesender-cli drafts list --drafts ~/.filesender/drafts.db
  filesender-cli drafts show 1234
  filesender-cli drafts show 1234 --remote --url https://filesender.example.org
  filesender-cli drafts delete 1234`,
	}

	cmd.AddCommand(draftsListCmd())
	cmd.AddCommand(draftsShowCmd())
	cmd.AddCommand(draftsDeleteCmd())

	return cmd
}

func requireDraftStore() error {
	if draftStore == "" {
		return fmt.Errorf("draft store is required (use --drafts or FILESENDER_DRAFT_DB environment variable)")
	}
	return nil
}

func draftsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireDraftStore(); err != nil {
				return err
			}
			repo, closeStore, err := openDrafts(cmd.Context(), draftStore)
			if err != nil {
				return err
			}
			defer closeStore()

			drafts, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(drafts) == 0 {
				fmt.Fprintln(out, "No drafts found.")
				return nil
			}

			fmt.Fprintf(out, "%-12s %-6s %-22s %-10s %s\n", "TRANSFER", "FILES", "PROGRESS", "EXPIRES", "UPDATED")
			fmt.Fprintln(out, strings.Repeat("─", 80))
			for _, d := range drafts {
				fmt.Fprintf(out, "%-12s %-6d %-22s %-10s %s\n",
					d.TransferID,
					len(d.Files),
					fmt.Sprintf("%s/%s", utils.FormatBytes(d.UploadedBytes()), utils.FormatBytes(d.Size)),
					d.Expires.Format("2006-01-02"),
					d.UpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}

func draftsShowCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "show <transfer-id>",
		Short: "Show one draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireDraftStore(); err != nil {
				return err
			}
			repo, closeStore, err := openDrafts(cmd.Context(), draftStore)
			if err != nil {
				return err
			}
			defer closeStore()

			d, err := repo.Get(cmd.Context(), args[0])
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no draft for transfer %s", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %s\n", "Transfer:", d.TransferID)
			fmt.Fprintf(out, "%-12s %s\n", "Subject:", d.Subject)
			fmt.Fprintf(out, "%-12s %s\n", "Recipients:", strings.Join(d.Recipients, ", "))
			fmt.Fprintf(out, "%-12s %s\n", "Expires:", d.Expires.Format("2006-01-02"))
			fmt.Fprintf(out, "%-12s %s of %s\n", "Uploaded:", utils.FormatBytes(d.UploadedBytes()), utils.FormatBytes(d.Size))
			fmt.Fprintln(out, strings.Repeat("─", 60))
			for _, f := range d.Files {
				state := "pending"
				if f.Complete {
					state = "complete"
				}
				fmt.Fprintf(out, "%-30s %10s  %s\n", f.Name, utils.FormatBytes(f.Size), state)
			}

			if remote {
				return showServerTransfer(cmd.Context(), out, d.TransferID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Also show the transfer as the server knows it")

	return cmd
}

// showServerTransfer prints the server's view of a drafted transfer. A
// transfer the server no longer knows is reported, not treated as failure.
func showServerTransfer(ctx context.Context, out io.Writer, transferID string) error {
	if err := checkConfig(); err != nil {
		return err
	}
	client, err := newClient("")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, strings.Repeat("─", 60))
	tr, err := client.GetTransfer(ctx, transferID)
	if errors.Is(err, filesender.ErrNotFound) {
		fmt.Fprintf(out, "%-12s %s\n", "Server:", "not found (deleted or expired)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching transfer %s: %w", transferID, err)
	}

	status := tr.Status
	if status == "" {
		status = "unknown"
	}
	fmt.Fprintf(out, "%-12s %s, %d file(s)\n", "Server:", status, len(tr.Files))
	if !tr.Expires.IsZero() {
		fmt.Fprintf(out, "%-12s %s\n", "Expires:", tr.Expires.Format("2006-01-02"))
	}
	return nil
}

func draftsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transfer-id>",
		Short: "Delete a draft",
		Long: `Delete the local snapshot of a transfer. The transfer on the server is not touched.

Example:
  filesender-cli drafts delete 1234`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireDraftStore(); err != nil {
				return err
			}
			repo, closeStore, err := openDrafts(cmd.Context(), draftStore)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := repo.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("no draft for transfer %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Draft %s deleted.\n", args[0])
			return nil
		},
	}
}
