package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/fjmerc/filesender-client/internal/transfer"
	"github.com/fjmerc/filesender-client/internal/webhooks"
)

// notifyTimeout bounds how long pending notifications delay exit.
const notifyTimeout = 30 * time.Second

type notifyOptions struct {
	url     string
	secret  string
	token   string
	format  string
	events  string
	retries int
}

// newNotifier starts a dispatcher for the configured endpoint, or returns
// nil when notifications are off.
func newNotifier(opts notifyOptions) (*webhooks.Dispatcher, error) {
	if opts.url == "" {
		return nil, nil
	}

	events, err := webhooks.ParseEvents(opts.events)
	if err != nil {
		return nil, err
	}
	cfg := &webhooks.Config{
		URL:          opts.url,
		Secret:       opts.secret,
		ServiceToken: opts.token,
		Events:       events,
		Format:       webhooks.WebhookFormat(opts.format),
		MaxRetries:   opts.retries,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := webhooks.NewDispatcher([]*webhooks.Config{cfg}, nil, 1, len(webhooks.AllEvents), webhooks.NewPrometheusMetrics())
	d.Start()
	return d, nil
}

// notifyOutcome emits the event matching the end of a run and waits for
// its delivery.
func notifyOutcome(ctx context.Context, d *webhooks.Dispatcher, tr *transfer.Transfer, runErr error) {
	if d == nil {
		return
	}

	d.Emit(transferEvent(tr, runErr))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	d.Shutdown(ctx)
}

func transferEvent(tr *transfer.Transfer, runErr error) *webhooks.Event {
	files := tr.Files()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	event := &webhooks.Event{
		Type:      webhooks.EventTransferCompleted,
		Timestamp: time.Now().UTC(),
		Transfer: webhooks.TransferData{
			ID:         tr.ID(),
			Files:      names,
			Size:       tr.Size(),
			Uploaded:   tr.Uploaded(),
			Recipients: tr.Recipients(),
			Expires:    tr.Expires(),
			Elapsed:    tr.Elapsed().Seconds(),
		},
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, transfer.ErrStopped):
		event.Type = webhooks.EventTransferStopped
	default:
		event.Type = webhooks.EventTransferFailed
		msg := runErr.Error()
		event.Transfer.Error = &msg
	}
	return event
}

func defaultNotifyOptions() notifyOptions {
	return notifyOptions{
		url:     os.Getenv("FILESENDER_NOTIFY_URL"),
		secret:  os.Getenv("FILESENDER_NOTIFY_SECRET"),
		token:   os.Getenv("FILESENDER_NOTIFY_TOKEN"),
		format:  "json",
		retries: 3,
	}
}
