package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/salon-portal/internal"
	"github.com/frahmantamala/salon-portal/internal/core/common/validation"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/appointment"
	"github.com/frahmantamala/salon-portal/internal/core/events"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateChecking   State = "checking"
	StateSuccess    State = "success"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
	StateTimeout    State = "timeout"
	StateManual     State = "manual"
)

// CanRetry reports whether "try again" is offered from s.
func (s State) CanRetry() bool {
	switch s {
	case StateFailed, StateCancelled, StateTimeout, StateManual:
		return true
	}
	return false
}

const (
	PollInterval    = 3 * time.Second
	MaxPollAttempts = 40
)

const (
	msgPhoneRequired    = "Please enter your M-Pesa phone number"
	msgCheckPhone       = "Please check your phone and enter your M-Pesa PIN"
	msgInitiateFailed   = "Payment initiation failed. Please try again."
	msgInitiateError    = "An error occurred. Please try again."
	msgSuccess          = "Payment successful! Your appointment has been confirmed."
	msgCancelled        = "Payment was cancelled. You can try again or use manual verification."
	msgFailed           = "Payment failed. Please try again or use manual verification."
	msgPendingVerify    = "Payment submitted for manual verification. An admin will review your payment within 24 hours."
	msgTimeout          = "Payment verification timed out. Please check your M-Pesa messages or contact support."
	msgVerified         = "Payment verified successfully!"
	msgVerifyRejected   = "Verification failed. Please check your receipt number."
	msgVerifyError      = "An error occurred during verification. Please try again."
	msgVerifyInProgress = "verification already in progress"
)

type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	CountryCode     string
	// RequestTimeout bounds each status query issued by the poller.
	RequestTimeout time.Duration
	Clock          Clock
	Bus            *events.EventBus
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = PollInterval
	}
	if o.MaxPollAttempts <= 0 {
		o.MaxPollAttempts = MaxPollAttempts
	}
	if o.CountryCode == "" {
		o.CountryCode = DefaultCountryCode
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.Clock == nil {
		o.Clock = RealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Snapshot is a read-only copy of a session, safe to serialize. FailureCode names why the
// last gateway answer was unhappy and is empty otherwise.
type Snapshot struct {
	ID                string             `json:"id"`
	AppointmentID     int64              `json:"appointment_id"`
	State             State              `json:"state"`
	PhoneNumber       string             `json:"phone_number,omitempty"`
	Attempts          int                `json:"poll_attempts"`
	MaxAttempts       int                `json:"max_poll_attempts"`
	Elapsed           string             `json:"elapsed"`
	CheckoutReference string             `json:"checkout_reference,omitempty"`
	ReceiptCode       string             `json:"receipt_code,omitempty"`
	Message           string             `json:"message,omitempty"`
	FailureCode       internal.ErrorCode `json:"failure_code,omitempty"`
	Closed            bool               `json:"closed"`
	Version           uint64             `json:"version"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Session drives one appointment's payment attempt:
//
//	idle -> processing -> checking -> success | cancelled | failed | manual | timeout
//
// Network calls run outside the lock. Every transition bumps gen so that results issued
// under an older gen are dropped on arrival.
type Session struct {
	mu sync.Mutex

	id            string
	appointmentID int64
	owner         string
	gateway       Gateway
	opts          Options

	state       State
	phone       string
	attempts    int
	checkoutRef string
	receipt     string
	message     string
	failure     internal.ErrorCode
	verifying   bool
	closed      bool
	gen         uint64
	version     uint64
	updatedAt   time.Time

	ticker   Ticker
	stopPoll chan struct{}

	// base is cancelled on Close and aborts in-flight status queries.
	base   context.Context
	cancel context.CancelFunc
}

func NewSession(id string, appointmentID int64, gateway Gateway, opts Options) *Session {
	opts = opts.withDefaults()
	base, cancel := context.WithCancel(context.Background())
	return &Session{
		id:            id,
		appointmentID: appointmentID,
		gateway:       gateway,
		opts:          opts,
		state:         StateIdle,
		updatedAt:     opts.Clock.Now(),
		base:          base,
		cancel:        cancel,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) AppointmentID() int64 {
	return s.appointmentID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	secs := int(time.Duration(s.attempts) * s.opts.PollInterval / time.Second)
	return Snapshot{
		ID:                s.id,
		AppointmentID:     s.appointmentID,
		State:             s.state,
		PhoneNumber:       s.phone,
		Attempts:          s.attempts,
		MaxAttempts:       s.opts.MaxPollAttempts,
		Elapsed:           fmt.Sprintf("%d:%02d", secs/60, secs%60),
		CheckoutReference: s.checkoutRef,
		ReceiptCode:       s.receipt,
		Message:           s.message,
		FailureCode:       s.failure,
		Closed:            s.closed,
		Version:           s.version,
		UpdatedAt:         s.updatedAt,
	}
}

// Submit starts an STK push for phone and blocks until the gateway answers. Gateway
// failures are outcomes (state failed), not errors; errors are reserved for rejected input
// or a call that is not allowed in the current state.
func (s *Session) Submit(ctx context.Context, phone string) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, internal.ErrSessionClosed
	}
	if s.state != StateIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, internal.ErrInvalidTransition
	}
	if strings.TrimSpace(phone) == "" {
		s.message = msgPhoneRequired
		ev := s.touchLocked(s.state)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(ev)
		return snap, internal.NewValidationFieldError("phone_number", msgPhoneRequired, internal.ErrCodeInvalidPhone)
	}

	s.phone = NormalizePhoneWithCode(phone, s.opts.CountryCode)
	s.message = ""
	ev := s.transitionLocked(StateProcessing)
	gen := s.gen
	normalized := s.phone
	s.mu.Unlock()
	s.publish(ev)

	s.opts.Logger.Info("initiating payment",
		"session_id", s.id,
		"appointment_id", s.appointmentID)

	res, err := s.gateway.Initiate(ctx, s.appointmentID, normalized)

	s.mu.Lock()
	if s.closed || s.gen != gen {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.opts.Logger.Debug("discarding stale initiate result", "session_id", s.id)
		return snap, nil
	}

	switch {
	case err != nil:
		s.message = initiateErrorMessage(err)
		ev = s.transitionLocked(StateFailed)
		s.failure = internal.ErrCodePaymentFailed
		s.opts.Logger.Warn("payment initiation failed",
			"session_id", s.id,
			"appointment_id", s.appointmentID,
			"error", err)
	case !res.Success:
		s.message = firstNonEmpty(res.Error, msgInitiateFailed)
		ev = s.transitionLocked(StateFailed)
		s.failure = internal.ErrCodePaymentFailed
	default:
		s.checkoutRef = res.CheckoutRequestID
		s.message = firstNonEmpty(res.Message, msgCheckPhone)
		s.attempts = 0
		ev = s.transitionLocked(StateChecking)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ev)
	return snap, nil
}

// Retry is the "try again" action; it returns the session to idle.
func (s *Session) Retry() (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, internal.ErrSessionClosed
	}
	if !s.state.CanRetry() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, internal.ErrInvalidTransition
	}
	s.attempts = 0
	s.message = ""
	s.checkoutRef = ""
	s.receipt = ""
	ev := s.transitionLocked(StateIdle)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ev)
	return snap, nil
}

// ChooseManual opens the receipt form. Allowed from every state except success; leaving
// checking stops the poller.
func (s *Session) ChooseManual() (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, internal.ErrSessionClosed
	}
	if s.state == StateSuccess {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, internal.ErrInvalidTransition
	}
	var ev *events.PaymentStateChangedEvent
	if s.state != StateManual {
		ev = s.transitionLocked(StateManual)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ev)
	return snap, nil
}

// Verify submits a receipt code for backend reconciliation. Outside the manual state it
// first switches to manual, so a valid receipt always ends in success.
func (s *Session) Verify(ctx context.Context, receipt string) (Snapshot, error) {
	code := validation.NormalizeReceipt(receipt)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, internal.ErrSessionClosed
	}
	if s.state == StateSuccess {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, internal.ErrInvalidTransition
	}
	if s.verifying {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, internal.NewConflictError(msgVerifyInProgress, internal.ErrCodeInvalidTransition)
	}

	if verr := validation.ValidateReceipt(code); verr != nil {
		s.message = validation.ReceiptMessage
		ev := s.touchLocked(s.state)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(ev)
		return snap, verr
	}

	var entered *events.PaymentStateChangedEvent
	if s.state != StateManual {
		entered = s.transitionLocked(StateManual)
	}
	s.receipt = code
	s.message = ""
	s.failure = ""
	s.verifying = true
	gen := s.gen
	s.mu.Unlock()
	s.publish(entered)

	res, err := s.gateway.Verify(ctx, s.appointmentID, code)

	s.mu.Lock()
	s.verifying = false
	if s.closed || s.gen != gen {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.opts.Logger.Debug("discarding stale verification result", "session_id", s.id)
		return snap, nil
	}

	var ev *events.PaymentStateChangedEvent
	switch {
	case err != nil:
		s.message = verifyErrorMessage(err)
		s.failure = internal.ErrCodeVerificationFail
		ev = s.touchLocked(s.state)
		s.opts.Logger.Warn("manual verification failed",
			"session_id", s.id,
			"appointment_id", s.appointmentID,
			"error", err)
	case !res.Success:
		s.message = firstNonEmpty(res.Error, msgVerifyRejected)
		s.failure = internal.ErrCodeVerificationFail
		ev = s.touchLocked(s.state)
	default:
		s.message = firstNonEmpty(res.Message, msgVerified)
		ev = s.transitionLocked(StateSuccess)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ev)
	return snap, nil
}

// Close tears the session down: polling stops, in-flight results are discarded and every
// later call fails with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopPollingLocked()
	s.gen++
	ev := s.touchLocked(s.state)
	s.mu.Unlock()

	s.cancel()
	s.publish(ev)
}

func (s *Session) transitionLocked(to State) *events.PaymentStateChangedEvent {
	from := s.state
	if from == StateChecking && to != StateChecking {
		s.stopPollingLocked()
	}
	s.state = to
	s.failure = ""
	s.gen++
	if to == StateChecking {
		s.startPollingLocked()
	}
	s.opts.Logger.Info("payment session state changed",
		"session_id", s.id,
		"appointment_id", s.appointmentID,
		"from", from,
		"to", to,
		"attempts", s.attempts)
	return s.touchLocked(from)
}

// touchLocked records a visible change and builds the event describing it.
func (s *Session) touchLocked(from State) *events.PaymentStateChangedEvent {
	s.version++
	s.updatedAt = s.opts.Clock.Now()
	return events.NewPaymentStateChangedEvent(s.id, s.appointmentID, string(from), string(s.state), s.attempts, s.message, s.version)
}

func (s *Session) publish(evs ...*events.PaymentStateChangedEvent) {
	if s.opts.Bus == nil {
		return
	}
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		if err := s.opts.Bus.Publish(context.Background(), ev); err != nil {
			s.opts.Logger.Error("failed to publish payment event", "session_id", s.id, "error", err)
		}
	}
}

func (s *Session) startPollingLocked() {
	s.stopPollingLocked()
	s.ticker = s.opts.Clock.NewTicker(s.opts.PollInterval)
	s.stopPoll = make(chan struct{})
	go s.poll(s.gen, s.ticker, s.stopPoll)
}

func (s *Session) stopPollingLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.stopPoll != nil {
		close(s.stopPoll)
		s.stopPoll = nil
	}
}

func (s *Session) poll(gen uint64, ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !s.tick(gen) {
				return
			}
		}
	}
}

// tick runs one status query. It returns false once the poller that owns gen is obsolete.
func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	if s.closed || s.gen != gen || s.state != StateChecking {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.base, s.opts.RequestTimeout)
	res, err := s.gateway.Status(ctx, s.appointmentID)
	cancel()

	s.mu.Lock()
	if s.closed || s.gen != gen || s.state != StateChecking {
		s.mu.Unlock()
		return false
	}
	s.attempts++

	next := StateChecking
	if err != nil {
		s.opts.Logger.Warn("payment status check failed",
			"session_id", s.id,
			"appointment_id", s.appointmentID,
			"attempt", s.attempts,
			"error", err)
	} else {
		switch res.PaymentStatus {
		case appointment.PaymentCompleted:
			next, s.message = StateSuccess, msgSuccess
		case appointment.PaymentCancelled:
			next, s.message = StateCancelled, msgCancelled
		case appointment.PaymentFailed:
			next, s.message = StateFailed, msgFailed
		case appointment.PaymentPendingVerification:
			next, s.message = StateManual, msgPendingVerify
		}
	}
	if next == StateChecking && s.attempts >= s.opts.MaxPollAttempts {
		next, s.message = StateTimeout, msgTimeout
	}

	var ev *events.PaymentStateChangedEvent
	if next != StateChecking {
		ev = s.transitionLocked(next)
		if next == StateFailed {
			s.failure = internal.ErrCodePaymentFailed
		}
	} else {
		ev = s.touchLocked(s.state)
	}
	s.mu.Unlock()
	s.publish(ev)
	return next == StateChecking
}

func initiateErrorMessage(err error) string {
	if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeExternal {
		return "Error: " + appErr.Message
	}
	return msgInitiateError
}

func verifyErrorMessage(err error) string {
	if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeExternal {
		return "Verification failed: " + appErr.Message
	}
	return msgVerifyError
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
