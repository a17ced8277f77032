package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"refurb-app/models"
	"refurb-app/types"

	"go.uber.org/zap"
)

// Session is one open goods-in dialog against a purchase order.
// Planned lines and the received count are read once at open and never refreshed.
type Session struct {
	ID      string
	Unit    string
	Actor   types.SnowflakeID
	Order   OrderHeader
	Planned []PlannedLineItem

	gw       Gateway
	resolver *Resolver
	policy   OverReceiptPolicy
	hooks    Hooks
	log      *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	mode       Mode
	state      State
	outcome    Outcome
	pending    string
	resolved   *CatalogReference
	lastError  *Error
	queue      []QueuedDevice
	settings   DeviceSettings
	applyToAll bool
	baseline   int
	accepted   int
	busy       bool
	closed     bool
	openedAt   time.Time
	lastActive time.Time
}

type ScanResult struct {
	Outcome     Outcome            `json:"outcome"`
	Reference   *CatalogReference  `json:"reference,omitempty"`
	Matched     []PlannedLineItem  `json:"matched,omitempty"`
	DeviceID    *types.SnowflakeID `json:"device_id,omitempty"`
	QueueLength int                `json:"queue_length"`
	Warning     string             `json:"warning,omitempty"`
	Fulfillment *Fulfillment       `json:"fulfillment,omitempty"`
}

type BatchResult struct {
	Committed   int                 `json:"committed"`
	DeviceIDs   []types.SnowflakeID `json:"device_ids"`
	Remaining   int                 `json:"remaining"`
	Fulfillment *Fulfillment        `json:"fulfillment,omitempty"`
}

type ErrorView struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Identifier string `json:"identifier,omitempty"`
}

type Snapshot struct {
	ID                string            `json:"id"`
	Unit              string            `json:"unit"`
	Order             OrderHeader       `json:"order"`
	Mode              Mode              `json:"mode"`
	State             State             `json:"state"`
	LastOutcome       Outcome           `json:"last_outcome,omitempty"`
	PendingIdentifier string            `json:"pending_identifier"`
	Resolved          *CatalogReference `json:"resolved,omitempty"`
	LastError         *ErrorView        `json:"last_error,omitempty"`
	Queue             []QueuedDevice    `json:"queue"`
	Settings          DeviceSettings    `json:"settings"`
	ApplyToAll        bool              `json:"apply_to_all"`
	Planned           []PlannedLineItem `json:"planned"`
	ReceivedAtOpen    int               `json:"received_at_open"`
	AcceptedInSession int               `json:"accepted_in_session"`
	OpenedAt          time.Time         `json:"opened_at"`
	LastActivity      time.Time         `json:"last_activity"`
}

// begin claims the loading guard; s.mu must be held. accept, reject and SubmitAll release it.
func (s *Session) begin() *Error {
	if s.closed {
		return newError(KindState, msgSessionClosed, "", nil)
	}
	if s.busy {
		return newError(KindBusy, msgBusy, "", nil)
	}
	s.busy = true
	s.lastActive = s.now()
	return nil
}

// Submit runs one scan through lookup, plan matching and, depending on the mode, an immediate write or the queue.
// A rejected scan keeps the identifier as the pending input.
func (s *Session) Submit(ctx context.Context, identifier string) (*ScanResult, error) {
	identifier = strings.TrimSpace(identifier)

	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		err.Identifier = identifier
		return nil, err
	}
	s.pending = identifier
	s.lastError = nil
	s.state = StateResolving
	mode := s.mode
	settings := s.effectiveSettings()
	s.mu.Unlock()

	ref, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, s.reject(err)
	}

	matched := MatchingLines(*ref, s.Planned)
	if !IsAllowed(*ref, s.Planned) {
		return nil, s.reject(newError(KindValidation, msgNotPlanned, identifier, nil))
	}

	s.mu.Lock()
	queued := s.isQueued(identifier)
	inFlight := s.baseline + s.accepted + len(s.queue)
	s.mu.Unlock()

	if queued {
		return nil, s.reject(newError(KindConflict, msgAlreadyQueued, identifier, nil))
	}

	warning, err := s.checkOverReceipt(identifier, inFlight+1)
	if err != nil {
		return nil, s.reject(err)
	}

	item := QueuedDevice{
		IMEI:      identifier,
		Reference: *ref,
		Settings:  settings,
		ScannedAt: s.now(),
	}

	result := &ScanResult{Reference: ref, Matched: matched, Warning: warning}

	if mode == ModeBulk {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, s.reject(newError(KindState, msgSessionClosed, identifier, nil))
		}
		s.queue = append(s.queue, item)
		result.QueueLength = len(s.queue)
		s.accept(ref, OutcomeQueued)
		s.mu.Unlock()

		result.Outcome = OutcomeQueued
		s.log.Debug("device queued", zap.String("session", s.ID), zap.String("imei", identifier))
		return result, nil
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, s.reject(newError(KindState, msgSessionClosed, identifier, nil))
	}

	deviceID, err := s.write(ctx, item)
	if err != nil {
		return nil, s.reject(err)
	}

	s.mu.Lock()
	s.accepted++
	result.QueueLength = len(s.queue)
	s.accept(ref, OutcomeAccepted)
	s.mu.Unlock()

	result.Outcome = OutcomeAccepted
	result.DeviceID = &deviceID
	s.log.Info("device received",
		zap.String("session", s.ID),
		zap.String("po_number", s.Order.PoNumber),
		zap.String("imei", identifier),
		zap.String("device_id", deviceID.String()))

	s.deviceAdded([]types.SnowflakeID{deviceID})
	result.Fulfillment = s.afterWrite(ctx, 1)
	return result, nil
}

// SubmitAll persists the queue one device at a time and stops at the first failure.
// Devices written before the failure stay committed and leave the queue; the failed device and the rest remain.
// A failure on the first device returns its own error rather than a BatchError.
func (s *Session) SubmitAll(ctx context.Context) (*BatchResult, error) {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.mode != ModeBulk {
		s.busy = false
		s.mu.Unlock()
		return nil, newError(KindState, "Submit all is only available in bulk mode", "", nil)
	}
	if len(s.queue) == 0 {
		err := newError(KindValidation, msgEmptyQueue, "", nil)
		s.busy = false
		s.lastError = err
		s.mu.Unlock()
		return nil, err
	}
	items := make([]QueuedDevice, len(s.queue))
	copy(items, s.queue)
	s.state = StateResolving
	s.lastError = nil
	s.mu.Unlock()

	var (
		ids     []types.SnowflakeID
		failure *Error
		failed  string
	)
	for _, item := range items {
		id, err := s.write(ctx, item)
		if err != nil {
			failure = asIntakeError(err, item.IMEI)
			failed = item.IMEI
			break
		}
		ids = append(ids, id)
	}

	committed := len(ids)

	s.mu.Lock()
	s.queue = append([]QueuedDevice(nil), items[committed:]...)
	s.accepted += committed
	s.state = StateIdle
	s.busy = false
	s.lastActive = s.now()
	if failure != nil {
		s.lastError = failure
		s.outcome = OutcomeRejected
	} else {
		s.outcome = OutcomeAccepted
	}
	remaining := len(s.queue)
	s.mu.Unlock()

	result := &BatchResult{Committed: committed, DeviceIDs: ids, Remaining: remaining}

	if committed > 0 {
		s.log.Info("queued devices received",
			zap.String("session", s.ID),
			zap.String("po_number", s.Order.PoNumber),
			zap.Int("committed", committed))
		s.deviceAdded(ids)
		result.Fulfillment = s.afterWrite(ctx, committed)
	}

	if failure != nil {
		s.log.Warn("batch submit stopped",
			zap.String("session", s.ID),
			zap.String("imei", failed),
			zap.Int("committed", committed),
			zap.Int("remaining", remaining),
			zap.Error(failure))
		if committed == 0 {
			return result, failure
		}
		return result, &BatchError{Committed: committed, Remaining: remaining, Failed: failed, Cause: failure}
	}
	return result, nil
}

// UpdateSettings replaces the shared device settings. They are applied only while applyToAll is set.
func (s *Session) UpdateSettings(settings DeviceSettings, applyToAll bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(KindState, msgSessionClosed, "", nil)
	}
	s.settings = settings
	s.applyToAll = applyToAll
	s.lastActive = s.now()
	return nil
}

// SetMode switches between bulk and single. Not allowed while devices are queued.
func (s *Session) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(KindState, msgSessionClosed, "", nil)
	}
	if s.busy {
		return newError(KindBusy, msgBusy, "", nil)
	}
	if mode != s.mode && len(s.queue) > 0 {
		return newError(KindState, "Submit or clear the queued devices before switching mode", "", nil)
	}
	s.mode = mode
	s.lastActive = s.now()
	return nil
}

// RemoveQueued drops the queued device at index.
func (s *Session) RemoveQueued(index int) (*QueuedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, newError(KindState, msgSessionClosed, "", nil)
	}
	if s.busy {
		return nil, newError(KindBusy, msgBusy, "", nil)
	}
	if index < 0 || index >= len(s.queue) {
		return nil, newError(KindNotFound, fmt.Sprintf("No queued device at position %d", index), "", nil)
	}
	removed := s.queue[index]
	s.queue = append(s.queue[:index], s.queue[index+1:]...)
	s.lastActive = s.now()
	return &removed, nil
}

// ClearError dismisses the last error banner.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:                s.ID,
		Unit:              s.Unit,
		Order:             s.Order,
		Mode:              s.mode,
		State:             s.state,
		LastOutcome:       s.outcome,
		PendingIdentifier: s.pending,
		Resolved:          s.resolved,
		Queue:             append([]QueuedDevice{}, s.queue...),
		Settings:          s.settings,
		ApplyToAll:        s.applyToAll,
		Planned:           s.Planned,
		ReceivedAtOpen:    s.baseline,
		AcceptedInSession: s.accepted,
		OpenedAt:          s.openedAt,
		LastActivity:      s.lastActive,
	}
	if s.lastError != nil {
		snap.LastError = &ErrorView{Kind: s.lastError.Kind, Message: s.lastError.Message, Identifier: s.lastError.Identifier}
	}
	return snap
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.busy
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
}

func (s *Session) effectiveSettings() DeviceSettings {
	if !s.applyToAll {
		return DeviceSettings{}
	}
	return s.settings
}

func (s *Session) isQueued(identifier string) bool {
	for _, q := range s.queue {
		if q.IMEI == identifier {
			return true
		}
	}
	return false
}

// accept must be called with s.mu held.
func (s *Session) accept(ref *CatalogReference, outcome Outcome) {
	s.pending = ""
	s.resolved = ref
	s.lastError = nil
	s.outcome = outcome
	s.state = StateIdle
	s.busy = false
	s.lastActive = s.now()
}

func (s *Session) reject(err error) error {
	ie := asIntakeError(err, "")

	s.mu.Lock()
	s.lastError = ie
	s.outcome = OutcomeRejected
	s.state = StateIdle
	s.busy = false
	s.lastActive = s.now()
	s.mu.Unlock()

	s.log.Debug("scan rejected", zap.String("session", s.ID), zap.String("imei", ie.Identifier), zap.String("kind", string(ie.Kind)))
	return ie
}

func (s *Session) checkOverReceipt(identifier string, afterScan int) (string, error) {
	total := PlannedTotal(s.Planned)
	if len(s.Planned) == 0 || afterScan <= total {
		return "", nil
	}
	switch s.policy {
	case PolicyBlock:
		return "", newError(KindOverReceipt, msgOverReceipt, identifier, nil)
	case PolicyWarn:
		return fmt.Sprintf("Receiving more devices than planned (%d of %d)", afterScan, total), nil
	}
	return "", nil
}

// write stores one device with its order link and purchase history row in a single transaction.
func (s *Session) write(ctx context.Context, item QueuedDevice) (types.SnowflakeID, error) {
	var deviceID types.SnowflakeID

	err := s.gw.Transaction(ctx, func(tx Gateway) error {
		id, err := tx.CreateReceivedDevice(ctx, s.Actor, NewDevice{
			IMEI:       item.IMEI,
			TacID:      item.Reference.ID,
			Settings:   item.Settings,
			SupplierID: s.Order.SupplierID,
			Status:     models.DeviceInStock,
		})
		if err != nil {
			return err
		}
		if _, err := tx.CreateOrderLink(ctx, s.Actor, s.Order.ID, id); err != nil {
			return err
		}
		if err := tx.RecordDeviceTransaction(ctx, s.Actor, DeviceTransaction{
			DeviceID:  id,
			Type:      models.TransactionPurchase,
			RefID:     s.Order.ID,
			NewStatus: models.DeviceInStock,
			Notes:     "Received on " + s.Order.PoNumber,
		}); err != nil {
			return err
		}
		deviceID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateIMEI) {
			return 0, newError(KindConflict, msgDuplicateIMEI, item.IMEI, err)
		}
		return 0, newError(KindTransient, msgWriteFailed, item.IMEI, err)
	}
	return deviceID, nil
}

func (s *Session) deviceAdded(ids []types.SnowflakeID) {
	if s.hooks.OnDeviceAdded == nil {
		return
	}
	s.hooks.OnDeviceAdded(DeviceAddedEvent{
		SessionID: s.ID,
		Unit:      s.Unit,
		OrderID:   s.Order.ID,
		DeviceIDs: ids,
		Actor:     s.Actor,
		At:        s.now(),
	})
}

// afterWrite re-reads fulfillment and reports the order once the write crossed the planned total.
func (s *Session) afterWrite(ctx context.Context, written int) *Fulfillment {
	f, err := CheckFulfillment(ctx, s.gw, s.Order.ID)
	if err != nil {
		s.log.Warn("fulfillment check failed", zap.String("po_number", s.Order.PoNumber), zap.Error(err))
		return nil
	}
	if f.Eligible && f.TotalReceived-written < f.TotalPlanned {
		s.log.Info("All devices received. Order can be completed.",
			zap.String("po_number", s.Order.PoNumber),
			zap.Int("planned", f.TotalPlanned),
			zap.Int("received", f.TotalReceived))
		if s.hooks.OnFulfilled != nil {
			s.hooks.OnFulfilled(FulfilledEvent{Unit: s.Unit, Order: s.Order, Fulfillment: f, At: s.now()})
		}
	}
	return &f
}

func asIntakeError(err error, identifier string) *Error {
	var ie *Error
	if errors.As(err, &ie) {
		if ie.Identifier == "" && identifier != "" {
			ie.Identifier = identifier
		}
		return ie
	}
	return newError(KindTransient, msgWriteFailed, identifier, err)
}
