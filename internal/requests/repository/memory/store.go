// Package memory is an in-process store with the same conditional-update
// semantics as the Mongo repositories. Transactions are serialised behind a
// single mutex and roll back to a snapshot on error.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	requestserrors "parkly/internal/requests/errors"
	slotserrors "parkly/internal/slots/errors"
	mongotx "parkly/pkg/db/mongo"
	"parkly/pkg/model"
)

type txKey struct{}

type state struct {
	requests map[int64]model.SlotRequest
	slots    map[int64]model.ParkingSlot
	vehicles map[int64]model.Vehicle
	users    map[int64]model.UserContact

	nextRequestID int64
	nextSlotID    int64
}

func (st *state) clone() state {
	return state{
		requests:      maps.Clone(st.requests),
		slots:         maps.Clone(st.slots),
		vehicles:      maps.Clone(st.vehicles),
		users:         maps.Clone(st.users),
		nextRequestID: st.nextRequestID,
		nextSlotID:    st.nextSlotID,
	}
}

type Store struct {
	mu sync.Mutex
	st state
	// now stamps created_at and requested_at.
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: state{
			requests: map[int64]model.SlotRequest{},
			slots:    map[int64]model.ParkingSlot{},
			vehicles: map[int64]model.Vehicle{},
			users:    map[int64]model.UserContact{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Seeding and inspection helpers.

func (s *Store) AddUser(u model.UserContact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) AddVehicle(v model.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.vehicles[v.ID] = v
}

// AddSlot stores slot as given. A zero ID gets the next free id and an empty
// status becomes available.
func (s *Store) AddSlot(slot model.ParkingSlot) model.ParkingSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == 0 {
		s.st.nextSlotID++
		slot.ID = s.st.nextSlotID
	} else if slot.ID > s.st.nextSlotID {
		s.st.nextSlotID = slot.ID
	}
	if slot.Status == "" {
		slot.Status = model.SlotAvailable
	}
	s.st.slots[slot.ID] = slot
	return slot
}

// AddRequest stores req as given, defaulting to pending.
func (s *Store) AddRequest(req model.SlotRequest) model.SlotRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID == 0 {
		s.st.nextRequestID++
		req.ID = s.st.nextRequestID
	} else if req.ID > s.st.nextRequestID {
		s.st.nextRequestID = req.ID
	}
	if req.Status == "" {
		req.Status = model.RequestPending
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = s.now()
	}
	s.st.requests[req.ID] = req
	return req
}

func (s *Store) Request(id int64) (model.SlotRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.st.requests[id]
	return req, ok
}

func (s *Store) Slot(id int64) (model.ParkingSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.st.slots[id]
	return slot, ok
}

func (s *Store) AllRequests() []model.SlotRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.requests)
}

func (s *Store) AllSlots() []model.ParkingSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.st.slots)
}

func sortedValues[T any](m map[int64]T) []T {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func page[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// RequestRepository is the slot request view of the store.
type RequestRepository struct {
	s *Store
}

func (s *Store) RequestRepo() *RequestRepository {
	return &RequestRepository{s: s}
}

func (r *RequestRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

func (r *RequestRepository) Create(ctx context.Context, req *model.SlotRequest) error {
	defer r.s.lock(ctx)()
	st := &r.s.st

	st.nextRequestID++
	req.ID = st.nextRequestID
	req.Status = model.RequestPending
	req.RequestedAt = r.s.now()
	st.requests[req.ID] = *req
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id int64) (*model.SlotRequest, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.st.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
	}
	return &req, nil
}

func matchesRequest(req model.SlotRequest, filter model.SlotRequestFilter) bool {
	if filter.UserID != nil && req.UserID != *filter.UserID {
		return false
	}
	return filter.Status == "" || req.Status == filter.Status
}

func (r *RequestRepository) filtered(filter model.SlotRequestFilter) []*model.SlotRequest {
	var out []*model.SlotRequest
	for _, req := range sortedValues(r.s.st.requests) {
		req := req
		if matchesRequest(req, filter) {
			out = append(out, &req)
		}
	}
	return out
}

func (r *RequestRepository) FindAll(ctx context.Context, filter model.SlotRequestFilter, limit int, offset int64) ([]*model.SlotRequest, error) {
	defer r.s.lock(ctx)()
	return page(r.filtered(filter), limit, offset), nil
}

func (r *RequestRepository) Count(ctx context.Context, filter model.SlotRequestFilter) (int64, error) {
	defer r.s.lock(ctx)()
	return int64(len(r.filtered(filter))), nil
}

func (r *RequestRepository) FindPendingDetails(ctx context.Context, id int64) (*model.SlotRequestDetails, error) {
	defer r.s.lock(ctx)()
	st := &r.s.st

	req, ok := st.requests[id]
	if !ok || req.Status != model.RequestPending {
		return nil, fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
	}
	vehicle, ok := st.vehicles[req.VehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
	}

	return &model.SlotRequestDetails{
		SlotRequest: req,
		VehicleType: vehicle.VehicleType,
		Size:        vehicle.Size,
		PlateNumber: vehicle.PlateNumber,
		Email:       st.users[req.UserID].Email,
	}, nil
}

func (r *RequestRepository) transition(ctx context.Context, id int64, missing error, guard func(model.SlotRequest) bool, apply func(*model.SlotRequest)) (*model.SlotRequest, error) {
	defer r.s.lock(ctx)()

	req, ok := r.s.st.requests[id]
	if !ok || !guard(req) {
		return nil, fmt.Errorf("%w: %d", missing, id)
	}
	apply(&req)
	r.s.st.requests[id] = req
	return &req, nil
}

func isPending(req model.SlotRequest) bool {
	return req.Status == model.RequestPending
}

func (r *RequestRepository) MarkApproved(ctx context.Context, id int64, slot *model.ParkingSlot, adminID int64, at time.Time) (*model.SlotRequest, error) {
	return r.transition(ctx, id, requestserrors.ErrStateChanged, isPending, func(req *model.SlotRequest) {
		slotID, slotNumber := slot.ID, slot.SlotNumber
		req.Status = model.RequestApproved
		req.SlotID = &slotID
		req.SlotNumber = &slotNumber
		req.ApprovedAt = &at
		req.ProcessedBy = &adminID
	})
}

func (r *RequestRepository) MarkRejected(ctx context.Context, id int64, reason string, adminID int64, at time.Time) (*model.SlotRequest, error) {
	return r.transition(ctx, id, requestserrors.ErrStateChanged, isPending, func(req *model.SlotRequest) {
		req.Status = model.RequestRejected
		req.RejectionReason = reason
		req.RejectedAt = &at
		req.ProcessedBy = &adminID
	})
}

func (r *RequestRepository) MarkReleased(ctx context.Context, id int64, at time.Time) (*model.SlotRequest, error) {
	bound := func(req model.SlotRequest) bool {
		return req.Status == model.RequestApproved && req.ReleasedAt == nil
	}
	return r.transition(ctx, id, requestserrors.ErrNotFound, bound, func(req *model.SlotRequest) {
		req.ReleasedAt = &at
	})
}

func (r *RequestRepository) UpdatePending(ctx context.Context, id, userID, vehicleID int64) (*model.SlotRequest, error) {
	owned := func(req model.SlotRequest) bool {
		return isPending(req) && req.UserID == userID
	}
	return r.transition(ctx, id, requestserrors.ErrNotFound, owned, func(req *model.SlotRequest) {
		req.VehicleID = vehicleID
	})
}

func (r *RequestRepository) DeletePending(ctx context.Context, id, userID int64) error {
	defer r.s.lock(ctx)()

	req, ok := r.s.st.requests[id]
	if !ok || !isPending(req) || req.UserID != userID {
		return fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
	}
	delete(r.s.st.requests, id)
	return nil
}

// VehicleRepository is the read-only vehicle view of the store.
type VehicleRepository struct {
	s *Store
}

func (s *Store) VehicleRepo() *VehicleRepository {
	return &VehicleRepository{s: s}
}

func (r *VehicleRepository) FindOwned(ctx context.Context, id, userID int64) (*model.Vehicle, error) {
	defer r.s.lock(ctx)()

	v, ok := r.s.st.vehicles[id]
	if !ok || v.UserID != userID {
		return nil, fmt.Errorf("%w: %d", requestserrors.ErrVehicleNotFound, id)
	}
	return &v, nil
}

// SlotRepository is the parking slot view of the store.
type SlotRepository struct {
	s *Store
}

func (s *Store) SlotRepo() *SlotRepository {
	return &SlotRepository{s: s}
}

func (r *SlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

func (r *SlotRepository) slotNumberTaken(number string, except int64) bool {
	for id, slot := range r.s.st.slots {
		if id != except && slot.SlotNumber == number {
			return true
		}
	}
	return false
}

func (r *SlotRepository) BulkCreate(ctx context.Context, slots []*model.ParkingSlot) error {
	defer r.s.lock(ctx)()
	st := &r.s.st

	seen := map[string]bool{}
	for _, slot := range slots {
		if seen[slot.SlotNumber] || r.slotNumberTaken(slot.SlotNumber, 0) {
			return fmt.Errorf("%w: %s", slotserrors.ErrDuplicateSlotNumber, slot.SlotNumber)
		}
		seen[slot.SlotNumber] = true
	}

	now := r.s.now()
	for _, slot := range slots {
		st.nextSlotID++
		slot.ID = st.nextSlotID
		slot.Status = model.SlotAvailable
		slot.CreatedAt = now
		st.slots[slot.ID] = *slot
	}
	return nil
}

func (r *SlotRepository) FindByID(ctx context.Context, id int64) (*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()

	slot, ok := r.s.st.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", slotserrors.ErrNotFound, id)
	}
	return &slot, nil
}

func (r *SlotRepository) filtered(filter model.SlotFilter) []*model.ParkingSlot {
	var out []*model.ParkingSlot
	for _, slot := range sortedValues(r.s.st.slots) {
		slot := slot
		if filter.Status == "" || slot.Status == filter.Status {
			out = append(out, &slot)
		}
	}
	return out
}

func (r *SlotRepository) FindAll(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()
	return page(r.filtered(filter), limit, offset), nil
}

func (r *SlotRepository) Count(ctx context.Context, filter model.SlotFilter) (int64, error) {
	defer r.s.lock(ctx)()
	return int64(len(r.filtered(filter))), nil
}

func (r *SlotRepository) Update(ctx context.Context, id int64, update *model.ParkingSlotUpdate) (*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()

	slot, ok := r.s.st.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", slotserrors.ErrNotFound, id)
	}
	if update.SlotNumber != nil {
		if r.slotNumberTaken(*update.SlotNumber, id) {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrDuplicateSlotNumber, *update.SlotNumber)
		}
		slot.SlotNumber = *update.SlotNumber
	}
	if update.Size != nil {
		slot.Size = *update.Size
	}
	if update.VehicleType != nil {
		slot.VehicleType = *update.VehicleType
	}
	if update.Location != nil {
		slot.Location = *update.Location
	}
	r.s.st.slots[id] = slot
	return &slot, nil
}

func (r *SlotRepository) DeleteAvailable(ctx context.Context, id int64) (*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()

	slot, ok := r.s.st.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", slotserrors.ErrNotFound, id)
	}
	if slot.Status != model.SlotAvailable {
		return nil, fmt.Errorf("%w: %d", slotserrors.ErrSlotInUse, id)
	}
	delete(r.s.st.slots, id)
	return &slot, nil
}

func (r *SlotRepository) Claim(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()

	for _, slot := range sortedValues(r.s.st.slots) {
		if slot.Status == model.SlotAvailable &&
			slot.VehicleType == criteria.VehicleType &&
			slot.Size == criteria.Size {
			slot.Status = model.SlotUnavailable
			r.s.st.slots[slot.ID] = slot
			return &slot, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", slotserrors.ErrNoCompatibleSlot, criteria.VehicleType, criteria.Size)
}

func (r *SlotRepository) Release(ctx context.Context, id int64) (*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()

	slot, ok := r.s.st.slots[id]
	if !ok || slot.Status != model.SlotUnavailable {
		return nil, fmt.Errorf("%w: slot %d is not unavailable", slotserrors.ErrStateChanged, id)
	}
	slot.Status = model.SlotAvailable
	r.s.st.slots[id] = slot
	return &slot, nil
}

func (r *SlotRepository) FindRepresentative(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error) {
	defer r.s.lock(ctx)()

	for _, slot := range sortedValues(r.s.st.slots) {
		if slot.VehicleType == criteria.VehicleType && slot.Size == criteria.Size {
			return &slot, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", slotserrors.ErrNotFound, criteria.VehicleType, criteria.Size)
}
