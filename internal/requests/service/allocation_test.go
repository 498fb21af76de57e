package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	requestserrors "parkly/internal/requests/errors"
	"parkly/internal/requests/repository"
	"parkly/internal/requests/repository/memory"
	"parkly/internal/requests/validator"
	slotsrepo "parkly/internal/slots/repository"
	"parkly/pkg/config"
	mongotx "parkly/pkg/db/mongo"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/model"
	"parkly/pkg/notification"
)

const adminID = int64(900)

type fakeGateway struct {
	mu         sync.Mutex
	err        error
	ctxErrs    []error
	approvals  []notification.ApprovalNotice
	rejections []notification.RejectionNotice
}

func (g *fakeGateway) SendApproval(ctx context.Context, notice notification.ApprovalNotice) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	g.approvals = append(g.approvals, notice)
	return g.err
}

func (g *fakeGateway) SendRejection(ctx context.Context, notice notification.RejectionNotice) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	g.rejections = append(g.rejections, notice)
	return g.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	actors  []int64
	actions []string
}

func (r *fakeRecorder) Record(_ context.Context, actorID int64, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = append(r.actors, actorID)
	r.actions = append(r.actions, action)
	return r.err
}

func (r *fakeRecorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

type fixture struct {
	store    *memory.Store
	gateway  *fakeGateway
	recorder *fakeRecorder
	cfg      *config.Config
	nextUser int64
}

func newFixture() *fixture {
	return &fixture{
		store:    memory.NewStore(),
		gateway:  &fakeGateway{},
		recorder: &fakeRecorder{},
		cfg: &config.Config{
			Log:                 logger.Nop(),
			ApprovalMaxAttempts: 3,
			NotificationTimeout: time.Second,
			AuditTimeout:        time.Second,
			ReadTimeout:         5 * time.Second,
		},
	}
}

func (f *fixture) engine() AllocationService {
	return f.engineWith(f.store.RequestRepo(), f.store.SlotRepo())
}

func (f *fixture) engineWith(requests repository.SlotRequestRepository, slots slotsrepo.ParkingSlotRepository) AllocationService {
	return NewAllocationService(requests, slots, f.gateway, f.recorder, validator.NewSlotRequestValidator(), f.cfg)
}

// pendingRequest seeds a user, a vehicle and a pending request for it.
func (f *fixture) pendingRequest(vehicleType, size string) model.SlotRequest {
	f.nextUser++
	userID := f.nextUser
	f.store.AddUser(model.UserContact{ID: userID, Email: fmt.Sprintf("user%d@example.com", userID), Role: "user"})
	f.store.AddVehicle(model.Vehicle{
		ID:          userID * 10,
		UserID:      userID,
		VehicleType: vehicleType,
		Size:        size,
		PlateNumber: fmt.Sprintf("RAB%03dA", userID),
	})
	return f.store.AddRequest(model.SlotRequest{UserID: userID, VehicleID: userID * 10})
}

func (f *fixture) slot(number, vehicleType, size, location string) model.ParkingSlot {
	return f.store.AddSlot(model.ParkingSlot{
		SlotNumber:  number,
		VehicleType: vehicleType,
		Size:        size,
		Location:    location,
	})
}

// assertOccupancy checks that unavailable slots are exactly the slots bound
// by approved, unreleased requests, each by one request.
func assertOccupancy(t *testing.T, store *memory.Store) {
	t.Helper()

	bound := map[int64]int{}
	for _, req := range store.AllRequests() {
		if req.Status == model.RequestApproved {
			require.NotNil(t, req.SlotID, "approved request %d has no slot", req.ID)
		} else {
			assert.Nil(t, req.SlotID, "%s request %d references a slot", req.Status, req.ID)
		}
		if req.Bound() {
			bound[*req.SlotID]++
		}
	}

	for _, slot := range store.AllSlots() {
		if slot.Status == model.SlotUnavailable {
			assert.Equal(t, 1, bound[slot.ID], "unavailable slot %s bound %d times", slot.SlotNumber, bound[slot.ID])
		} else {
			assert.Zero(t, bound[slot.ID], "available slot %s is bound", slot.SlotNumber)
		}
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.Equal(t, code, appErr.Code, "unexpected error: %v", err)
}

func TestApprove_AssignsCompatibleSlot(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	a1 := f.slot("A1", "car", "medium", "Level 1")

	result, err := f.engine().Approve(context.Background(), req.ID, adminID)
	require.NoError(t, err)

	assert.Equal(t, a1.ID, result.Slot.ID)
	assert.Equal(t, "A1", result.Slot.SlotNumber)
	assert.Equal(t, model.SlotUnavailable, result.Slot.Status)
	assert.Equal(t, model.RequestApproved, result.Request.Status)
	require.NotNil(t, result.Request.SlotID)
	assert.Equal(t, a1.ID, *result.Request.SlotID)
	require.NotNil(t, result.Request.ApprovedAt)
	require.NotNil(t, result.Request.ProcessedBy)
	assert.Equal(t, adminID, *result.Request.ProcessedBy)
	assert.Equal(t, model.EmailSent, result.EmailStatus)

	stored, _ := f.store.Request(req.ID)
	assert.Equal(t, model.RequestApproved, stored.Status)
	slot, _ := f.store.Slot(a1.ID)
	assert.Equal(t, model.SlotUnavailable, slot.Status)

	require.Len(t, f.gateway.approvals, 1)
	notice := f.gateway.approvals[0]
	assert.Equal(t, "A1", notice.SlotNumber)
	assert.Equal(t, "Level 1", notice.Location)
	assert.Equal(t, "RAB001A", notice.PlateNumber)
	assert.Equal(t, "user1@example.com", notice.Email)

	assert.Equal(t, []string{fmt.Sprintf("Slot request %d approved, assigned slot A1, email sent", req.ID)}, f.recorder.Actions())
	assert.Equal(t, []int64{adminID}, f.recorder.actors)
	assertOccupancy(t, f.store)
}

func TestApprove_PicksLowestSlotID(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "small")
	f.store.AddSlot(model.ParkingSlot{ID: 7, SlotNumber: "C7", VehicleType: "car", Size: "small"})
	f.store.AddSlot(model.ParkingSlot{ID: 3, SlotNumber: "C3", VehicleType: "car", Size: "small"})
	f.store.AddSlot(model.ParkingSlot{ID: 1, SlotNumber: "C1", VehicleType: "car", Size: "large"})
	f.store.AddSlot(model.ParkingSlot{ID: 2, SlotNumber: "C2", VehicleType: "car", Size: "small", Status: model.SlotUnavailable})

	result, err := f.engine().Approve(context.Background(), req.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Slot.ID)
}

func TestApprove_NoCompatibleSlot(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("truck", "large")
	f.slot("A1", "car", "large", "Level 1")

	_, err := f.engine().Approve(context.Background(), req.ID, adminID)
	requireCode(t, err, apperrors.CodeNoCompatibleSlot)
	assert.Equal(t, 400, apperrors.AsAppError(err).StatusCode())

	stored, _ := f.store.Request(req.ID)
	assert.Equal(t, model.RequestPending, stored.Status)
	assert.Nil(t, stored.SlotID)
	assert.Empty(t, f.gateway.approvals)
	assertOccupancy(t, f.store)
}

func TestApprove_UnknownRequestIsNotFound(t *testing.T) {
	f := newFixture()
	f.slot("A1", "car", "medium", "Level 1")

	_, err := f.engine().Approve(context.Background(), 42, adminID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestTransitions_AreMonotonic(t *testing.T) {
	f := newFixture()
	engine := f.engine()
	approved := f.pendingRequest("car", "medium")
	rejected := f.pendingRequest("car", "medium")
	f.slot("A1", "car", "medium", "Level 1")
	f.slot("A2", "car", "medium", "Level 1")
	ctx := context.Background()

	_, err := engine.Approve(ctx, approved.ID, adminID)
	require.NoError(t, err)
	_, err = engine.Reject(ctx, rejected.ID, adminID, "No permit")
	require.NoError(t, err)

	for _, id := range []int64{approved.ID, rejected.ID} {
		_, err = engine.Approve(ctx, id, adminID)
		requireCode(t, err, apperrors.CodeNotFound)
		_, err = engine.Reject(ctx, id, adminID, "again")
		requireCode(t, err, apperrors.CodeNotFound)
	}

	a, _ := f.store.Request(approved.ID)
	assert.Equal(t, model.RequestApproved, a.Status)
	r, _ := f.store.Request(rejected.ID)
	assert.Equal(t, model.RequestRejected, r.Status)
	assert.Nil(t, r.SlotID)
	assertOccupancy(t, f.store)
}

func TestApprove_FailingGatewayStillCommits(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("smtp: connection refused")
	req := f.pendingRequest("car", "medium")
	a1 := f.slot("A1", "car", "medium", "Level 1")

	result, err := f.engine().Approve(context.Background(), req.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailFailed, result.EmailStatus)

	stored, _ := f.store.Request(req.ID)
	assert.Equal(t, model.RequestApproved, stored.Status)
	slot, _ := f.store.Slot(a1.ID)
	assert.Equal(t, model.SlotUnavailable, slot.Status)
	assert.Contains(t, f.recorder.Actions()[0], "email failed")
	assertOccupancy(t, f.store)
}

func TestApprove_FailingAuditDoesNotAffectResult(t *testing.T) {
	f := newFixture()
	f.recorder.err = errors.New("broker down")
	req := f.pendingRequest("car", "medium")
	f.slot("A1", "car", "medium", "Level 1")

	result, err := f.engine().Approve(context.Background(), req.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailSent, result.EmailStatus)
}

func TestApprove_NotificationOutlivesCallerCancellation(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	f.slot("A1", "car", "medium", "Level 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.engine().Approve(ctx, req.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailSent, result.EmailStatus)
	require.Len(t, f.gateway.ctxErrs, 1)
	assert.NoError(t, f.gateway.ctxErrs[0])
}

func TestApprove_ConcurrentRequestsForOneSlot(t *testing.T) {
	const n = 12

	f := newFixture()
	b1 := f.slot("B1", "car", "medium", "Level 2")
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = f.pendingRequest("car", "medium").ID
	}
	engine := f.engine()

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		results   = make([]*model.ApprovalResult, n)
		errs      = make([]error, n)
		successes int
	)
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = engine.Approve(context.Background(), id, adminID)
		}()
	}
	close(start)
	wg.Wait()

	for i := range ids {
		if errs[i] == nil {
			successes++
			assert.Equal(t, b1.ID, results[i].Slot.ID)
			continue
		}
		code := apperrors.AsAppError(errs[i]).Code
		assert.Contains(t, []string{apperrors.CodeNoCompatibleSlot, apperrors.CodeConflict}, code)
	}
	assert.Equal(t, 1, successes)

	approved := 0
	for _, req := range f.store.AllRequests() {
		if req.Status == model.RequestApproved {
			approved++
		}
	}
	assert.Equal(t, 1, approved)
	slot, _ := f.store.Slot(b1.ID)
	assert.Equal(t, model.SlotUnavailable, slot.Status)
	assertOccupancy(t, f.store)
}

func TestApprove_TwoRequestsRaceForLastSlot(t *testing.T) {
	f := newFixture()
	r4 := f.pendingRequest("car", "medium")
	r5 := f.pendingRequest("car", "medium")
	b1 := f.slot("B1", "car", "medium", "Level 2")
	engine := f.engine()

	var wg sync.WaitGroup
	errs := make(map[int64]error)
	var mu sync.Mutex
	for _, id := range []int64{r4.ID, r5.ID} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Approve(context.Background(), id, adminID)
			mu.Lock()
			errs[id] = err
			mu.Unlock()
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won)

	a, _ := f.store.Request(r4.ID)
	b, _ := f.store.Request(r5.ID)
	assert.NotEqual(t, a.Status, b.Status)
	slot, _ := f.store.Slot(b1.ID)
	assert.Equal(t, model.SlotUnavailable, slot.Status)
	assertOccupancy(t, f.store)
}

// contendedSlots loses the first failures claims to a concurrent writer.
type contendedSlots struct {
	slotsrepo.ParkingSlotRepository
	failures int
	calls    int
}

func (c *contendedSlots) Claim(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, fmt.Errorf("%w: write conflict", mongotx.ErrTransactionConflict)
	}
	return c.ParkingSlotRepository.Claim(ctx, criteria)
}

func TestApprove_RetriesLostClaims(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	f.slot("A1", "car", "medium", "Level 1")
	slots := &contendedSlots{ParkingSlotRepository: f.store.SlotRepo(), failures: 2}

	result, err := f.engineWith(f.store.RequestRepo(), slots).Approve(context.Background(), req.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, "A1", result.Slot.SlotNumber)
	assert.Equal(t, 3, slots.calls)
}

func TestApprove_ExhaustedRetriesIsConflict(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	a1 := f.slot("A1", "car", "medium", "Level 1")
	slots := &contendedSlots{ParkingSlotRepository: f.store.SlotRepo(), failures: 100}

	_, err := f.engineWith(f.store.RequestRepo(), slots).Approve(context.Background(), req.ID, adminID)
	requireCode(t, err, apperrors.CodeConflict)
	assert.Equal(t, f.cfg.ApprovalMaxAttempts, slots.calls)

	stored, _ := f.store.Request(req.ID)
	assert.Equal(t, model.RequestPending, stored.Status)
	slot, _ := f.store.Slot(a1.ID)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assert.Empty(t, f.gateway.approvals)
}

// processedElsewhere simulates a request that left pending between the
// load and the transition.
type processedElsewhere struct {
	repository.SlotRequestRepository
}

func (p *processedElsewhere) MarkApproved(context.Context, int64, *model.ParkingSlot, int64, time.Time) (*model.SlotRequest, error) {
	return nil, requestserrors.ErrStateChanged
}

func (p *processedElsewhere) MarkRejected(context.Context, int64, string, int64, time.Time) (*model.SlotRequest, error) {
	return nil, requestserrors.ErrStateChanged
}

func TestApprove_LostRequestRaceRollsBackClaim(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	a1 := f.slot("A1", "car", "medium", "Level 1")
	requests := &processedElsewhere{SlotRequestRepository: f.store.RequestRepo()}

	_, err := f.engineWith(requests, f.store.SlotRepo()).Approve(context.Background(), req.ID, adminID)
	requireCode(t, err, apperrors.CodeConflict)

	slot, _ := f.store.Slot(a1.ID)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assertOccupancy(t, f.store)
}

func TestReject_RecordsReasonAndNotifies(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	f.store.AddSlot(model.ParkingSlot{SlotNumber: "A1", VehicleType: "car", Size: "medium", Location: "Basement", Status: model.SlotUnavailable})

	result, err := f.engine().Reject(context.Background(), req.ID, adminID, "  Vehicle   not registered ")
	require.NoError(t, err)

	assert.Equal(t, model.RequestRejected, result.Request.Status)
	assert.Equal(t, "Vehicle not registered", result.Request.RejectionReason)
	assert.NotNil(t, result.Request.RejectedAt)
	assert.Nil(t, result.Request.SlotID)
	assert.Equal(t, model.EmailSent, result.EmailStatus)

	require.Len(t, f.gateway.rejections, 1)
	assert.Equal(t, "Basement", f.gateway.rejections[0].Location)
	assert.Equal(t, "Vehicle not registered", f.gateway.rejections[0].Reason)
	assert.Equal(t,
		[]string{fmt.Sprintf("Slot request %d rejected with reason: Vehicle not registered, email sent", req.ID)},
		f.recorder.Actions(),
	)
}

func TestReject_UnknownLocationFallback(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("queue unavailable")
	req := f.pendingRequest("bus", "large")

	result, err := f.engine().Reject(context.Background(), req.ID, adminID, "Full")
	require.NoError(t, err)
	assert.Equal(t, model.EmailFailed, result.EmailStatus)

	require.Len(t, f.gateway.rejections, 1)
	assert.Equal(t, "unknown", f.gateway.rejections[0].Location)

	stored, _ := f.store.Request(req.ID)
	assert.Equal(t, model.RequestRejected, stored.Status)
}

// untouchable fails the test if the engine reaches the store.
type untouchable struct {
	repository.SlotRequestRepository
	t *testing.T
}

func (u *untouchable) FindPendingDetails(context.Context, int64) (*model.SlotRequestDetails, error) {
	u.t.Fatal("store accessed before validation")
	return nil, nil
}

func TestReject_EmptyReasonFailsBeforeStoreAccess(t *testing.T) {
	for _, reason := range []string{"", "   ", "\n\t"} {
		f := newFixture()
		req := f.pendingRequest("car", "medium")
		requests := &untouchable{SlotRequestRepository: f.store.RequestRepo(), t: t}

		_, err := f.engineWith(requests, f.store.SlotRepo()).Reject(context.Background(), req.ID, adminID, reason)
		requireCode(t, err, apperrors.CodeValidation)
		assert.Equal(t, 400, apperrors.AsAppError(err).StatusCode())

		stored, _ := f.store.Request(req.ID)
		assert.Equal(t, model.RequestPending, stored.Status)
	}
}

func TestReject_OverlongReason(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	_, err := f.engine().Reject(context.Background(), req.ID, adminID, string(long))
	requireCode(t, err, apperrors.CodeValidation)
}

func TestReject_LostRaceIsConflict(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")
	requests := &processedElsewhere{SlotRequestRepository: f.store.RequestRepo()}

	_, err := f.engineWith(requests, f.store.SlotRepo()).Reject(context.Background(), req.ID, adminID, "No permit")
	requireCode(t, err, apperrors.CodeConflict)
	assert.Empty(t, f.gateway.rejections)
}

func TestRelease_FreesSlotForNextRequest(t *testing.T) {
	f := newFixture()
	engine := f.engine()
	first := f.pendingRequest("car", "medium")
	second := f.pendingRequest("car", "medium")
	a1 := f.slot("A1", "car", "medium", "Level 1")
	ctx := context.Background()

	_, err := engine.Approve(ctx, first.ID, adminID)
	require.NoError(t, err)
	_, err = engine.Approve(ctx, second.ID, adminID)
	requireCode(t, err, apperrors.CodeNoCompatibleSlot)

	released, err := engine.Release(ctx, first.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, released.Status)
	assert.NotNil(t, released.ReleasedAt)
	slot, _ := f.store.Slot(a1.ID)
	assert.Equal(t, model.SlotAvailable, slot.Status)
	assertOccupancy(t, f.store)

	result, err := engine.Approve(ctx, second.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, result.Slot.ID)
	assertOccupancy(t, f.store)

	_, err = engine.Release(ctx, first.ID, adminID)
	requireCode(t, err, apperrors.CodeNotFound)

	assert.Contains(t, f.recorder.Actions(), fmt.Sprintf("Slot request %d released slot A1", first.ID))
}

func TestRelease_PendingRequestIsNotFound(t *testing.T) {
	f := newFixture()
	req := f.pendingRequest("car", "medium")

	_, err := f.engine().Release(context.Background(), req.ID, adminID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestRelease_SlotNotHeldRollsBack(t *testing.T) {
	f := newFixture()
	a1 := f.slot("A1", "car", "medium", "Level 1")
	slotID, slotNumber := a1.ID, a1.SlotNumber
	req := f.store.AddRequest(model.SlotRequest{
		UserID:     1,
		VehicleID:  10,
		Status:     model.RequestApproved,
		SlotID:     &slotID,
		SlotNumber: &slotNumber,
	})

	_, err := f.engine().Release(context.Background(), req.ID, adminID)
	requireCode(t, err, apperrors.CodeConflict)

	stored, _ := f.store.Request(req.ID)
	assert.Nil(t, stored.ReleasedAt)
}

func TestAllocation_InvariantAcrossMixedOperations(t *testing.T) {
	f := newFixture()
	engine := f.engine()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.slot(fmt.Sprintf("M%d", i), "car", "medium", "Level 1")
	}
	f.slot("L1", "van", "large", "Yard")

	var ids []int64
	for i := 0; i < 6; i++ {
		ids = append(ids, f.pendingRequest("car", "medium").ID)
	}
	vanID := f.pendingRequest("van", "large").ID

	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%3 == 2 {
				_, _ = engine.Reject(ctx, id, adminID, "Duplicate request")
				return
			}
			_, _ = engine.Approve(ctx, id, adminID)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = engine.Approve(ctx, vanID, adminID)
	}()
	wg.Wait()
	assertOccupancy(t, f.store)

	for _, req := range f.store.AllRequests() {
		if req.Bound() {
			_, err := engine.Release(ctx, req.ID, adminID)
			require.NoError(t, err)
			assertOccupancy(t, f.store)
		}
	}
	for _, slot := range f.store.AllSlots() {
		assert.Equal(t, model.SlotAvailable, slot.Status)
	}
}
