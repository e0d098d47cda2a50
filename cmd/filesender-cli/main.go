// filesender-cli uploads files to a FileSender server from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	filesender "github.com/fjmerc/filesender-client/sdk/go"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/metrics"
	"github.com/fjmerc/filesender-client/internal/utils"
)

var (
	// Global flags
	baseURL     string
	apiToken    string
	verbose     bool
	logFormat   string
	draftStore  string
	metricsFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filesender-cli",
		Short: "FileSender CLI - Send large files from the command line",
		Long: `FileSender CLI registers transfers with a FileSender server and uploads
their files in chunks, in parallel or as whole files.

Configuration:
  Set FILESENDER_URL and FILESENDER_TOKEN environment variables, or use --url and --token flags.
  Upload limits default to FILESENDER_* variables and are overridden by the server's published info.

Examples:
  filesender-cli upload report.pdf --to alice@example.org
  filesender-cli upload ./photos s3://bucket/video.mp4 --to bob@example.org --expires 7
  filesender-cli drafts list
  filesender-cli config`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr())
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", os.Getenv("FILESENDER_URL"), "FileSender server URL (or FILESENDER_URL env)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("FILESENDER_TOKEN"), "API token (or FILESENDER_TOKEN env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&draftStore, "drafts", os.Getenv("FILESENDER_DRAFT_DB"), "Draft store: SQLite file or postgres:// URL (or FILESENDER_DRAFT_DB env)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	// Add subcommands
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(draftsCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// setupLogging installs the default slog logger on w.
func setupLogging(w io.Writer) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", logFormat)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// checkConfig validates that required configuration is present.
func checkConfig() error {
	if baseURL == "" {
		return fmt.Errorf("server URL is required (use --url or FILESENDER_URL environment variable)")
	}
	// Security warning if token is passed via command line
	if os.Getenv("FILESENDER_TOKEN") == "" && apiToken != "" {
		fmt.Fprintf(os.Stderr, "[WARNING] Token %s passed via command line is visible in process list. Use FILESENDER_TOKEN environment variable instead.\n", utils.MaskToken(apiToken))
	}
	return nil
}

// newClient creates an SDK client whose requests are recorded in metrics.
func newClient(chunkUploadSecurity string) (*filesender.Client, error) {
	return filesender.NewClient(filesender.ClientConfig{
		BaseURL:             baseURL,
		APIToken:            apiToken,
		ChunkUploadSecurity: chunkUploadSecurity,
		Transport:           metrics.InstrumentRoundTripper(nil),
	})
}

// loadConfig reads the local configuration and overlays the limits the
// server publishes. An unreachable info endpoint keeps the local values.
func loadConfig(ctx context.Context, client *filesender.Client) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	info, err := client.GetConfig(ctx)
	if err != nil {
		slog.Warn("server info unavailable, using local limits", "error", err)
		return cfg, nil
	}

	cfg.ApplyServer(serverSettings(info))
	if info.LegacyUploadProgressRefreshPeriod > 0 {
		cfg.LegacyProgressRefreshPeriod = time.Duration(info.LegacyUploadProgressRefreshPeriod) * time.Second
	}
	client.SetChunkUploadSecurity(cfg.ChunkUploadSecurity)

	return cfg, nil
}

func serverSettings(info *filesender.ServerInfo) config.ServerSettings {
	return config.ServerSettings{
		MaxTransferFiles:      info.MaxTransferFiles,
		MaxTransferSize:       info.MaxTransferSize,
		MaxTransferRecipients: info.MaxTransferRecipients,
		BanExtension:          info.BanExtension,
		UploadChunkSize:       info.UploadChunkSize,
		DefaultDaysValid:      info.DefaultDaysValid,
		ChunkUploadSecurity:   info.ChunkUploadSecurity,
		TerasenderEnabled:     info.TerasenderEnabled,
	}
}

// writeMetrics dumps the registry when --metrics-file is set.
func writeMetrics() {
	if metricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(metricsFile); err != nil {
		slog.Warn("failed to write metrics", "file", metricsFile, "error", err)
	}
}
