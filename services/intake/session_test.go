package intake

import (
	"context"
	"errors"
	"sync"
	"testing"

	"refurb-app/models"
	"refurb-app/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	added     []DeviceAddedEvent
	fulfilled []FulfilledEvent
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnDeviceAdded: func(e DeviceAddedEvent) {
			r.mu.Lock()
			r.added = append(r.added, e)
			r.mu.Unlock()
		},
		OnFulfilled: func(e FulfilledEvent) {
			r.mu.Lock()
			r.fulfilled = append(r.fulfilled, e)
			r.mu.Unlock()
		},
	}
}

func openSession(t *testing.T, gw *fakeGateway, mode Mode, policy OverReceiptPolicy, rec *recorder) *Session {
	t.Helper()
	opts := []Option{}
	if rec != nil {
		opts = append(opts, WithHooks(rec.hooks()))
	}
	m := NewManager(func(string) (Gateway, error) { return gw, nil }, ManagerConfig{Policy: policy}, opts...)
	s, err := m.Open(context.Background(), testUnit, testOrderID, testActor, mode)
	require.NoError(t, err)
	return s
}

func TestSingleModeScanWritesDevice(t *testing.T) {
	gw := seededGateway()
	rec := &recorder{}
	s := openSession(t, gw, ModeSingle, PolicyAllow, rec)

	res, err := s.Submit(context.Background(), "1234567890123456")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	require.NotNil(t, res.DeviceID)

	require.Len(t, gw.devices, 1)
	device := gw.devices[*res.DeviceID]
	assert.Equal(t, "1234567890123456", device.IMEI)
	assert.Equal(t, models.DeviceInStock, device.Status)
	assert.EqualValues(t, 501, device.TacID)
	assert.EqualValues(t, 9, *device.SupplierID)
	assert.Equal(t, []types.SnowflakeID{*res.DeviceID}, gw.links[testOrderID])

	require.Len(t, gw.transactions, 1)
	assert.Equal(t, models.TransactionPurchase, gw.transactions[0].Type)
	assert.Equal(t, testOrderID, gw.transactions[0].RefID)
	assert.Equal(t, []types.SnowflakeID{testActor}, gw.actors)

	snap := s.Snapshot()
	assert.Empty(t, snap.PendingIdentifier)
	assert.Nil(t, snap.LastError)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, OutcomeAccepted, snap.LastOutcome)
	assert.Equal(t, 1, snap.AcceptedInSession)

	require.Len(t, rec.added, 1)
	assert.Equal(t, []types.SnowflakeID{*res.DeviceID}, rec.added[0].DeviceIDs)
	assert.Equal(t, &Fulfillment{TotalPlanned: 5, TotalReceived: 1}, res.Fulfillment)
	assert.Empty(t, rec.fulfilled)
}

func TestScanOfUnplannedModelIsRejected(t *testing.T) {
	gw := seededGateway()
	rec := &recorder{}
	s := openSession(t, gw, ModeSingle, PolicyAllow, rec)

	res, err := s.Submit(context.Background(), "3546781200000001")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, gw.deviceCount())
	assert.Empty(t, gw.links[testOrderID])

	snap := s.Snapshot()
	assert.Equal(t, "3546781200000001", snap.PendingIdentifier)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, KindValidation, snap.LastError.Kind)
	assert.Equal(t, msgNotPlanned, snap.LastError.Message)
	assert.Equal(t, OutcomeRejected, snap.LastOutcome)
	assert.Empty(t, rec.added)
}

func TestRejectedLookupKeepsIdentifier(t *testing.T) {
	gw := seededGateway()
	s := openSession(t, gw, ModeSingle, PolicyAllow, nil)

	_, err := s.Submit(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "1234", s.Snapshot().PendingIdentifier)
	assert.Zero(t, gw.lookupCount())

	gw.lookupErr = errBoom
	_, err = s.Submit(context.Background(), "1234567890123456")
	assert.ErrorIs(t, err, ErrTransient)

	snap := s.Snapshot()
	assert.Equal(t, "1234567890123456", snap.PendingIdentifier)
	assert.Equal(t, msgLookupFailed, snap.LastError.Message)
	assert.Zero(t, snap.AcceptedInSession)
}

func TestDuplicateIMEIIsConflict(t *testing.T) {
	gw := seededGateway()
	gw.imeis["1234567890123456"] = true
	s := openSession(t, gw, ModeSingle, PolicyAllow, nil)

	_, err := s.Submit(context.Background(), "1234567890123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	ie, _ := AsError(err)
	assert.Equal(t, msgDuplicateIMEI, ie.Message)
	assert.Equal(t, "1234567890123456", s.Snapshot().PendingIdentifier)
}

func TestWriteFailureIsTransient(t *testing.T) {
	gw := seededGateway()
	gw.failCreateAt = 1
	gw.failErr = errBoom
	s := openSession(t, gw, ModeSingle, PolicyAllow, nil)

	_, err := s.Submit(context.Background(), "1234567890123456")
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, errBoom)

	// The identifier is still there for a manual retry.
	res, err := s.Submit(context.Background(), s.Snapshot().PendingIdentifier)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, res.Outcome)
}

func TestBulkModeQueuesUntilSubmitAll(t *testing.T) {
	gw := seededGateway()
	rec := &recorder{}
	s := openSession(t, gw, ModeBulk, PolicyAllow, rec)

	for _, imei := range []string{"1234567800000001", "1234567800000002"} {
		res, err := s.Submit(context.Background(), imei)
		require.NoError(t, err)
		assert.Equal(t, OutcomeQueued, res.Outcome)
	}
	assert.Zero(t, gw.deviceCount())
	assert.Len(t, s.Snapshot().Queue, 2)
	assert.Empty(t, rec.added)

	res, err := s.SubmitAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Committed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, 2, gw.deviceCount())
	assert.Empty(t, s.Snapshot().Queue)

	// One callback per batch.
	require.Len(t, rec.added, 1)
	assert.Len(t, rec.added[0].DeviceIDs, 2)
}

func TestSubmitAllStopsAtFirstFailure(t *testing.T) {
	gw := seededGateway()
	gw.failCreateAt = 2
	gw.failErr = errBoom
	rec := &recorder{}
	s := openSession(t, gw, ModeBulk, PolicyAllow, rec)

	imeis := []string{"1234567800000001", "1234567800000002", "1234567800000003"}
	for _, imei := range imeis {
		_, err := s.Submit(context.Background(), imei)
		require.NoError(t, err)
	}

	res, err := s.SubmitAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialBatch)
	assert.ErrorIs(t, err, ErrTransient)

	var batch *BatchError
	require.True(t, errors.As(err, &batch))
	assert.Equal(t, 1, batch.Committed)
	assert.Equal(t, imeis[1], batch.Failed)
	assert.Equal(t, 2, batch.Remaining)

	assert.Equal(t, 1, res.Committed)
	assert.Equal(t, 1, gw.deviceCount())
	assert.Equal(t, 2, gw.createCalls, "third device must not be attempted")
	assert.True(t, gw.imeis[imeis[0]])
	assert.False(t, gw.imeis[imeis[2]])

	snap := s.Snapshot()
	require.Len(t, snap.Queue, 2)
	assert.Equal(t, imeis[1], snap.Queue[0].IMEI)
	assert.Equal(t, imeis[2], snap.Queue[1].IMEI)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, KindTransient, snap.LastError.Kind)
	require.Len(t, rec.added, 1)

	// Retrying submits the rest.
	res, err = s.SubmitAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Committed)
	assert.Equal(t, 3, gw.deviceCount())
	assert.Equal(t, 3, s.Snapshot().AcceptedInSession)
}

func TestSubmitAllFailingOnFirstDevice(t *testing.T) {
	gw := seededGateway()
	rec := &recorder{}
	s := openSession(t, gw, ModeBulk, PolicyAllow, rec)

	_, err := s.Submit(context.Background(), "1234567800000001")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "1234567800000002")
	require.NoError(t, err)
	gw.imeis["1234567800000001"] = true

	res, err := s.SubmitAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrPartialBatch)
	var batch *BatchError
	assert.False(t, errors.As(err, &batch))

	ie, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "1234567800000001", ie.Identifier)

	require.NotNil(t, res)
	assert.Zero(t, res.Committed)
	assert.Equal(t, 2, res.Remaining)
	assert.Zero(t, gw.deviceCount())
	assert.Len(t, s.Snapshot().Queue, 2)
	assert.Empty(t, rec.added)
}

func TestSubmitAllWithEmptyQueue(t *testing.T) {
	s := openSession(t, seededGateway(), ModeBulk, PolicyAllow, nil)

	_, err := s.SubmitAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	ie, _ := AsError(err)
	assert.Equal(t, msgEmptyQueue, ie.Message)

	// The guard was released.
	_, err = s.Submit(context.Background(), "1234567800000001")
	assert.NoError(t, err)
}

func TestSubmitAllInSingleMode(t *testing.T) {
	s := openSession(t, seededGateway(), ModeSingle, PolicyAllow, nil)
	_, err := s.SubmitAll(context.Background())
	assert.ErrorIs(t, err, ErrState)
}

func TestDuplicateWithinQueue(t *testing.T) {
	s := openSession(t, seededGateway(), ModeBulk, PolicyAllow, nil)

	_, err := s.Submit(context.Background(), "1234567800000001")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "1234567800000001")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, s.Snapshot().Queue, 1)
}

func TestLoadingGuardRejectsConcurrentScan(t *testing.T) {
	gw := seededGateway()
	s := openSession(t, gw, ModeSingle, PolicyAllow, nil)

	gw.entered = make(chan struct{})
	gw.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "1234567800000001")
		done <- err
	}()
	<-gw.entered

	assert.Equal(t, StateResolving, s.Snapshot().State)

	_, err := s.Submit(context.Background(), "1234567800000002")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.SubmitAll(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.SetMode(ModeBulk), ErrBusy)

	close(gw.release)
	require.NoError(t, <-done)

	gw.entered = nil
	assert.Equal(t, 1, gw.deviceCount())
	assert.Equal(t, StateIdle, s.Snapshot().State)
}

func TestSessionClosedDuringLookup(t *testing.T) {
	for _, mode := range []Mode{ModeBulk, ModeSingle} {
		t.Run(string(mode), func(t *testing.T) {
			gw := seededGateway()
			m := NewManager(func(string) (Gateway, error) { return gw, nil }, ManagerConfig{})
			s, err := m.Open(context.Background(), testUnit, testOrderID, testActor, mode)
			require.NoError(t, err)

			gw.entered = make(chan struct{})
			gw.release = make(chan struct{})

			done := make(chan error, 1)
			go func() {
				_, err := s.Submit(context.Background(), "1234567800000001")
				done <- err
			}()
			<-gw.entered

			require.NoError(t, m.Close(testUnit, s.ID))
			close(gw.release)

			err = <-done
			assert.ErrorIs(t, err, ErrState)
			assert.Empty(t, s.Snapshot().Queue)
			assert.Zero(t, gw.deviceCount())
		})
	}
}

func TestApplyToAllSettings(t *testing.T) {
	gw := seededGateway()
	s := openSession(t, gw, ModeSingle, PolicyAllow, nil)

	storage := 128
	color := "Midnight"
	grade := uint(2)
	settings := DeviceSettings{StorageGB: &storage, Color: &color, GradeID: &grade}

	require.NoError(t, s.UpdateSettings(settings, false))
	res, err := s.Submit(context.Background(), "1234567800000001")
	require.NoError(t, err)
	assert.True(t, gw.devices[*res.DeviceID].Settings.IsEmpty())

	require.NoError(t, s.UpdateSettings(settings, true))
	res, err = s.Submit(context.Background(), "1234567800000002")
	require.NoError(t, err)
	assert.Equal(t, settings, gw.devices[*res.DeviceID].Settings)
}

func TestOverReceiptPolicies(t *testing.T) {
	fill := func(gw *fakeGateway, n int) {
		for i := 0; i < n; i++ {
			gw.links[testOrderID] = append(gw.links[testOrderID], types.SnowflakeID(900+i))
		}
	}

	t.Run("allow", func(t *testing.T) {
		gw := seededGateway()
		fill(gw, 5)
		s := openSession(t, gw, ModeSingle, PolicyAllow, nil)
		res, err := s.Submit(context.Background(), "1234567800000001")
		require.NoError(t, err)
		assert.Empty(t, res.Warning)
	})

	t.Run("warn", func(t *testing.T) {
		gw := seededGateway()
		fill(gw, 5)
		s := openSession(t, gw, ModeSingle, PolicyWarn, nil)
		res, err := s.Submit(context.Background(), "1234567800000001")
		require.NoError(t, err)
		assert.Equal(t, "Receiving more devices than planned (6 of 5)", res.Warning)
		assert.Equal(t, 1, gw.deviceCount())
	})

	t.Run("block", func(t *testing.T) {
		gw := seededGateway()
		fill(gw, 4)
		s := openSession(t, gw, ModeBulk, PolicyBlock, nil)

		_, err := s.Submit(context.Background(), "1234567800000001")
		require.NoError(t, err)
		_, err = s.Submit(context.Background(), "1234567800000002")
		assert.ErrorIs(t, err, ErrOverReceipt)
		assert.Len(t, s.Snapshot().Queue, 1)
	})

	t.Run("no planned lines", func(t *testing.T) {
		gw := seededGateway()
		gw.planned[testOrderID] = nil
		fill(gw, 3)
		s := openSession(t, gw, ModeSingle, PolicyBlock, nil)
		_, err := s.Submit(context.Background(), "3546781200000001")
		assert.NoError(t, err)
	})
}

func TestFulfilledHookFiresWhenPlanIsReached(t *testing.T) {
	gw := seededGateway()
	for i := 0; i < 4; i++ {
		gw.links[testOrderID] = append(gw.links[testOrderID], types.SnowflakeID(900+i))
	}
	rec := &recorder{}
	s := openSession(t, gw, ModeSingle, PolicyAllow, rec)

	res, err := s.Submit(context.Background(), "1234567800000001")
	require.NoError(t, err)
	assert.True(t, res.Fulfillment.Eligible)
	require.Len(t, rec.fulfilled, 1)
	assert.Equal(t, "PO-20240101-001", rec.fulfilled[0].Order.PoNumber)

	// Already past the plan, no second notification.
	_, err = s.Submit(context.Background(), "1234567800000002")
	require.NoError(t, err)
	assert.Len(t, rec.fulfilled, 1)

	// Completing the order is left to the purchase order endpoints.
	assert.Empty(t, gw.statuses)
}

func TestSetModeAndRemoveQueued(t *testing.T) {
	s := openSession(t, seededGateway(), ModeBulk, PolicyAllow, nil)

	_, err := s.Submit(context.Background(), "1234567800000001")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "1234567800000002")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetMode(ModeSingle), ErrState)

	_, err = s.RemoveQueued(5)
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := s.RemoveQueued(0)
	require.NoError(t, err)
	assert.Equal(t, "1234567800000001", removed.IMEI)
	removed, err = s.RemoveQueued(0)
	require.NoError(t, err)
	assert.Equal(t, "1234567800000002", removed.IMEI)

	require.NoError(t, s.SetMode(ModeSingle))
	assert.Equal(t, ModeSingle, s.Mode())
}

func TestParseModeAndPolicy(t *testing.T) {
	m, err := ParseMode(" Single ")
	require.NoError(t, err)
	assert.Equal(t, ModeSingle, m)
	_, err = ParseMode("batch")
	assert.ErrorIs(t, err, ErrValidation)

	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAllow, p)
	p, err = ParsePolicy("WARN")
	require.NoError(t, err)
	assert.Equal(t, PolicyWarn, p)
	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
