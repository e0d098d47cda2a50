package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/metrics"
	"github.com/fjmerc/filesender-client/internal/storage"
	"github.com/fjmerc/filesender-client/internal/storage/resolver"
	"github.com/fjmerc/filesender-client/internal/storage/s3"
	"github.com/fjmerc/filesender-client/internal/transfer"
	"github.com/fjmerc/filesender-client/internal/transport"
	"github.com/fjmerc/filesender-client/internal/utils"
)

// shutdownTimeout bounds how long an interrupted upload may take to stop.
const shutdownTimeout = 30 * time.Second

type uploadOptions struct {
	recipients  []string
	from        string
	subject     string
	message     string
	expiresDays int
	guestToken  string
	parallel    bool
	workers     int
	legacy      bool
	noTracking  bool
	retryPolicy string
	noProgress  bool

	s3     s3.S3Config
	notify notifyOptions
}

func uploadCmd() *cobra.Command {
	opts := uploadOptions{notify: defaultNotifyOptions()}

	cmd := &cobra.Command{
		Use:   "upload <file|dir|s3://bucket/key>...",
		Short: "Upload files to FileSender",
		Long: `Register a transfer for the given files and upload them.

Directories are walked recursively. s3:// references are read in place
with ranged requests.

Signals:
  SIGINT/SIGTERM  stop the transfer and delete it on the server
  SIGUSR1         pause a running transfer, or resume a paused one

Examples:
  filesender-cli upload document.pdf --to alice@example.org
  filesender-cli upload ./dataset --to bob@example.org --parallel --workers 8
  filesender-cli upload s3://bucket/video.mp4 --to carol@example.org --expires 3
  filesender-cli upload notes.txt --to dave@example.org --legacy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkConfig(); err != nil {
				return err
			}
			defer writeMetrics()
			return runUpload(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts, cmd.Flags().Changed("expires"))
		},
	}

	cmd.Flags().StringSliceVarP(&opts.recipients, "to", "t", nil, "Recipient email address (repeatable)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Sender address")
	cmd.Flags().StringVarP(&opts.subject, "subject", "s", "", "Transfer subject")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Message to recipients")
	cmd.Flags().IntVarP(&opts.expiresDays, "expires", "e", 0, "Days until expiration (default from server)")
	cmd.Flags().StringVar(&opts.guestToken, "guest", os.Getenv("FILESENDER_GUEST_TOKEN"), "Guest voucher token (or FILESENDER_GUEST_TOKEN env)")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "Upload chunks with concurrent workers")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of parallel workers (default from FILESENDER_TERASENDER_WORKER_COUNT)")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "Upload whole files instead of chunks")
	cmd.Flags().BoolVar(&opts.noTracking, "no-tracking", false, "Disable server-side progress tracking of whole-file uploads")
	cmd.Flags().StringVar(&opts.retryPolicy, "retry", "", "Retry policy: none, constant or exponential")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress bar")

	cmd.Flags().StringVar(&opts.notify.url, "notify-url", opts.notify.url, "Webhook notified when the transfer ends (or FILESENDER_NOTIFY_URL env)")
	cmd.Flags().StringVar(&opts.notify.secret, "notify-secret", opts.notify.secret, "HMAC secret signing webhook payloads (or FILESENDER_NOTIFY_SECRET env)")
	cmd.Flags().StringVar(&opts.notify.token, "notify-token", opts.notify.token, "Gotify/ntfy service token (or FILESENDER_NOTIFY_TOKEN env)")
	cmd.Flags().StringVar(&opts.notify.format, "notify-format", opts.notify.format, "Webhook format: json, gotify, ntfy or discord")
	cmd.Flags().StringVar(&opts.notify.events, "notify-events", "", "Comma-separated events to send (default all)")
	cmd.Flags().IntVar(&opts.notify.retries, "notify-retries", opts.notify.retries, "Webhook delivery retries")

	cmd.Flags().StringVar(&opts.s3.Region, "s3-region", os.Getenv("AWS_REGION"), "Region of s3:// sources")
	cmd.Flags().StringVar(&opts.s3.Endpoint, "s3-endpoint", os.Getenv("FILESENDER_S3_ENDPOINT"), "Custom S3 endpoint (MinIO and compatible)")
	cmd.Flags().BoolVar(&opts.s3.PathStyle, "s3-path-style", false, "Use path-style S3 addressing")

	return cmd
}

func runUpload(ctx context.Context, stdout, stderr io.Writer, refs []string, opts uploadOptions, expiresSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := newClient("")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, client)
	if err != nil {
		return err
	}
	if opts.parallel {
		cfg.TerasenderEnabled = true
	}
	if opts.workers > 0 {
		cfg.TerasenderWorkerCount = opts.workers
	}
	if opts.retryPolicy != "" {
		cfg.RetryPolicy = opts.retryPolicy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	caps := config.NewCapabilities(cfg)
	if opts.legacy {
		caps.SetSupportsReader(false)
		if !opts.noTracking {
			caps.SetTrackingKey(uuid.NewString())
		}
	}

	sources, err := openSources(ctx, refs, opts.s3)
	defer resolver.CloseAll(sources)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(opts.notify)
	if err != nil {
		return fmt.Errorf("invalid notification settings: %w", err)
	}
	if notifier != nil {
		defer notifier.Shutdown(context.Background())
	}

	drafts, closeStore, err := openDrafts(ctx, draftStore)
	if err != nil {
		return err
	}
	defer closeStore()

	tracker := utils.NewTransferTracker()
	collector := metrics.NewTransferMetricsCollector(tracker)
	if err := prometheus.Register(collector); err == nil {
		defer prometheus.Unregister(collector)
	}

	progress := newProgressPrinter(stdout, !opts.noProgress)
	completions := transfer.NewCompletions()

	var tr *transfer.Transfer
	transferOpts := []transfer.Option{
		transfer.WithLegacyFrame(transport.NewFrame(client, completions), completions),
		transfer.WithTracker(tracker),
		transfer.WithCallbacks(transfer.Callbacks{
			OnProgress: func(f transfer.File, complete bool) {
				progress.update(f, complete, tr.Uploaded(), tr.Size())
			},
		}),
	}
	if drafts != nil {
		transferOpts = append(transferOpts, transfer.WithDrafts(drafts))
	}
	tr = transfer.New(cfg, caps, transport.NewREST(client), transferOpts...)

	onError := func(e *transfer.Error) {
		progress.clear()
		fmt.Fprintf(stderr, "error: %v\n", e)
	}
	transfer.SetDefaultErrorHandler(onError)

	if _, err := tr.AddFiles(sources, onError); err != nil {
		return fmt.Errorf("invalid files: %w", err)
	}
	for _, r := range opts.recipients {
		if err := tr.AddRecipient(r, onError); err != nil {
			return fmt.Errorf("invalid recipient: %w", err)
		}
	}
	tr.SetFrom(opts.from)
	tr.SetSubject(opts.subject)
	tr.SetMessage(opts.message)
	tr.SetGuestToken(opts.guestToken)
	if expiresSet {
		tr.SetExpires(time.Now().AddDate(0, 0, opts.expiresDays))
	}

	fmt.Fprintf(stdout, "Uploading %d file(s) (%s) to %s\n", len(tr.Files()), utils.FormatBytes(tr.Size()), client.BaseURL())

	if err := tr.Start(ctx, onError); err != nil {
		return err
	}

	err = waitWithSignals(ctx, tr, tracker, stderr)
	progress.clear()
	notifyOutcome(ctx, notifier, tr, err)
	if err != nil {
		if errors.Is(err, transfer.ErrStopped) {
			fmt.Fprintln(stdout, "Transfer stopped and deleted.")
		}
		return err
	}

	printSummary(stdout, tr)
	return nil
}

// openSources resolves references, creating an S3 client only when one is
// needed.
func openSources(ctx context.Context, refs []string, s3cfg s3.S3Config) ([]storage.Source, error) {
	var r resolver.Resolver
	for _, ref := range refs {
		if s3.IsURL(ref) {
			client, err := s3.NewClient(ctx, s3cfg)
			if err != nil {
				return nil, err
			}
			r.S3 = client
			break
		}
	}
	return r.Resolve(ctx, refs)
}

// waitWithSignals waits for the transfer while translating signals:
// interrupts stop it, SIGUSR1 toggles pause.
func waitWithSignals(ctx context.Context, tr *transfer.Transfer, tracker *utils.TransferTracker, stderr io.Writer) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(signals)

	done := make(chan error, 1)
	go func() { done <- tr.Wait(ctx) }()

	for {
		select {
		case err := <-done:
			return err

		case sig := <-signals:
			if sig == syscall.SIGUSR1 {
				togglePause(tr, stderr)
				continue
			}

			fmt.Fprintln(stderr, "\nStopping transfer...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			finished := tracker.WaitForTransfers(shutdownCtx)
			cancel()
			if !finished {
				return fmt.Errorf("transfer did not stop within %s", shutdownTimeout)
			}
			return <-done
		}
	}
}

func togglePause(tr *transfer.Transfer, stderr io.Writer) {
	var err error
	switch tr.Status() {
	case transfer.StatusRunning:
		if err = tr.Pause(); err == nil {
			fmt.Fprintln(stderr, "\nPaused. Send SIGUSR1 again to resume.")
		}
	case transfer.StatusPaused:
		if err = tr.Resume(); err == nil {
			fmt.Fprintln(stderr, "\nResumed.")
		}
	}
	if err != nil {
		slog.Debug("pause toggle ignored", "status", tr.Status(), "error", err)
	}
}

func printSummary(w io.Writer, tr *transfer.Transfer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintf(w, "Upload successful!\n")
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintf(w, "Transfer:    %s\n", tr.ID())
	fmt.Fprintf(w, "Files:       %d\n", len(tr.Files()))
	fmt.Fprintf(w, "Size:        %s\n", utils.FormatBytes(tr.Size()))
	fmt.Fprintf(w, "Recipients:  %s\n", strings.Join(tr.Recipients(), ", "))
	fmt.Fprintf(w, "Expires:     %s\n", tr.Expires().Format("2006-01-02"))
	fmt.Fprintf(w, "Took:        %s\n", tr.Elapsed().Round(time.Millisecond))
	fmt.Fprintln(w, strings.Repeat("─", 50))
}
