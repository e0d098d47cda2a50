// Package transfer implements the client-side upload engine: file and
// recipient collection, validation, the transfer state machine and the
// chunked, parallel and legacy upload strategies.
package transfer

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/repository"
	"github.com/fjmerc/filesender-client/internal/storage"
	"github.com/fjmerc/filesender-client/internal/utils"
)

// Status is the lifecycle state of a transfer.
type Status string

const (
	StatusNew     Status = "new"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
	StatusDone    Status = "done"
)

// Callbacks are invoked from the upload goroutine, never with internal
// locks held. Any of them may be nil.
type Callbacks struct {
	OnProgress func(file File, complete bool)
	OnComplete func(elapsed time.Duration)
	OnError    func(err *Error)
}

// Option configures a Transfer.
type Option func(*Transfer)

// WithLegacyFrame enables whole-file uploads through frame. Results are
// correlated through completions.
func WithLegacyFrame(frame LegacyFrame, completions *Completions) Option {
	return func(t *Transfer) {
		t.legacyFrame = frame
		t.completions = completions
	}
}

// WithDrafts persists a local snapshot of the transfer once registered.
func WithDrafts(repo repository.DraftRepository) Option {
	return func(t *Transfer) { t.drafts = repo }
}

// WithRetryPolicy overrides the retry policy built from configuration.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(t *Transfer) { t.retry = p }
}

// WithCallbacks sets the progress, completion and error callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(t *Transfer) { t.callbacks = cb }
}

// WithTracker registers the running transfer for graceful shutdown.
func WithTracker(tracker *utils.TransferTracker) Option {
	return func(t *Transfer) { t.tracker = tracker }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Transfer) { t.now = now }
}

// WithRandom replaces the cid random source. rnd must return a value in [0, n).
func WithRandom(rnd func(n int) int) Option {
	return func(t *Transfer) { t.rnd = rnd }
}

// Transfer is one multi-file send operation. All methods are safe for
// concurrent use.
type Transfer struct {
	mu sync.Mutex
	// cbMu serializes callbacks when workers report concurrently.
	cbMu sync.Mutex

	cfg         config.Config
	caps        *config.Capabilities
	transport   Transport
	legacyFrame LegacyFrame
	completions *Completions
	drafts      repository.DraftRepository
	retry       RetryPolicy
	tracker     *utils.TransferTracker
	callbacks   Callbacks
	now         func() time.Time
	rnd         func(n int) int

	id         string
	status     Status
	files      []*File
	recipients []string
	size       int64
	from       string
	subject    string
	message    string
	expires    time.Time
	options    map[string]any
	guestToken string
	fileIndex  int

	startTime   time.Time
	pauseTime   time.Time
	pauseLength time.Duration
	elapsed     time.Duration

	startHandler  ErrorHandler
	registered    bool
	completeAcked bool
	strategy      Strategy
	trackingID    string

	// lifeCtx is cancelled when the transfer reaches stopped or done.
	lifeCtx    context.Context
	lifeCancel context.CancelFunc
	runDone    chan struct{}
	runErr     error
}

// New creates a transfer in status new. The configuration is copied.
func New(cfg *config.Config, caps *config.Capabilities, transport Transport, opts ...Option) *Transfer {
	t := &Transfer{
		cfg:       *cfg,
		caps:      caps,
		transport: transport,
		status:    StatusNew,
		options:   make(map[string]any),
		now:       time.Now,
		rnd:       rand.IntN,
	}
	if t.caps == nil {
		t.caps = config.NewCapabilities(cfg)
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.retry == nil {
		t.retry = RetryPolicyFromConfig(&t.cfg)
	}
	t.expires = t.now().Add(time.Duration(t.cfg.DefaultDaysValid) * day)

	return t
}

// ID returns the server-assigned id, or "" before registration.
func (t *Transfer) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Status returns the lifecycle state.
func (t *Transfer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Size returns the combined size of all files.
func (t *Transfer) Size() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Files returns copies of the file entries in upload order.
func (t *Transfer) Files() []File {
	t.mu.Lock()
	defer t.mu.Unlock()

	files := make([]File, len(t.files))
	for i, f := range t.files {
		files[i] = *f
	}
	return files
}

// Recipients returns the recipient addresses.
func (t *Transfer) Recipients() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.recipients...)
}

// Uploaded returns the bytes uploaded across all files.
func (t *Transfer) Uploaded() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total int64
	for _, f := range t.files {
		total += f.Uploaded
	}
	return total
}

// Elapsed returns the upload duration reported on completion, paused
// intervals excluded. It is zero until the transfer is done.
func (t *Transfer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Expires returns the expiration date.
func (t *Transfer) Expires() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expires
}

// SetFrom sets the sender address.
func (t *Transfer) SetFrom(from string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.from = from
}

// SetSubject sets the subject sent to recipients.
func (t *Transfer) SetSubject(subject string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subject = subject
}

// SetMessage sets the message sent to recipients.
func (t *Transfer) SetMessage(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.message = message
}

// SetExpires sets the expiration date. It is checked by Start.
func (t *Transfer) SetExpires(expires time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires = expires
}

// SetOption sets a named transfer option.
func (t *Transfer) SetOption(name string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.options[name] = value
}

// SetGuestToken sets the credential of a guest sender.
func (t *Transfer) SetGuestToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.guestToken = token
}

// AddFile validates src and appends it. Returns the new file's cid.
// Errors are passed to h (or the default sink) and returned.
func (t *Transfer) AddFile(src storage.Source, h ErrorHandler) (string, error) {
	t.mu.Lock()

	if t.status != StatusNew {
		t.mu.Unlock()
		return "", ErrInvalidState
	}

	if verr := validateFile(&t.cfg, src, t.files, t.size); verr != nil {
		t.mu.Unlock()
		resolveHandler(h)(verr)
		return "", verr
	}

	taken := make(map[string]bool, len(t.files))
	for _, f := range t.files {
		taken[f.CID] = true
	}

	f := &File{
		CID:      newCID(src.Name(), src.Size(), t.now().UnixMilli(), taken, t.rnd),
		Name:     src.Name(),
		MimeType: src.MimeType(),
		Size:     src.Size(),
		source:   src,
	}
	t.files = append(t.files, f)
	t.size += f.Size
	t.mu.Unlock()

	return f.CID, nil
}

// AddFiles adds each source in turn. A failing source does not prevent
// the others from being added; all errors are joined.
func (t *Transfer) AddFiles(srcs []storage.Source, h ErrorHandler) ([]string, error) {
	if len(srcs) == 0 {
		verr := newError(KindNoFileGiven, nil)
		resolveHandler(h)(verr)
		return nil, verr
	}

	var (
		cids []string
		errs []error
	)
	for _, src := range srcs {
		cid, err := t.AddFile(src, h)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cids = append(cids, cid)
	}

	return cids, errors.Join(errs...)
}

// RemoveFile removes the file with the given cid. Unknown cids are ignored.
func (t *Transfer) RemoveFile(cid string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusNew {
		return ErrInvalidState
	}

	for i, f := range t.files {
		if f.CID == cid {
			t.files = append(t.files[:i], t.files[i+1:]...)
			t.size -= f.Size
			return nil
		}
	}
	return nil
}

// AddRecipient validates email and adds it.
func (t *Transfer) AddRecipient(email string, h ErrorHandler) error {
	t.mu.Lock()

	if verr := validateRecipient(&t.cfg, email, t.recipients); verr != nil {
		t.mu.Unlock()
		resolveHandler(h)(verr)
		return verr
	}

	t.recipients = append(t.recipients, email)
	t.mu.Unlock()
	return nil
}

// RemoveRecipient removes the first exact match of email.
func (t *Transfer) RemoveRecipient(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, r := range t.recipients {
		if r == email {
			t.recipients = append(t.recipients[:i], t.recipients[i+1:]...)
			return
		}
	}
}

// elapsedLocked returns the upload time so far, paused intervals excluded.
func (t *Transfer) elapsedLocked() time.Duration {
	now := t.now()
	elapsed := now.Sub(t.startTime) - t.pauseLength
	if t.status == StatusPaused {
		elapsed -= now.Sub(t.pauseTime)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}
