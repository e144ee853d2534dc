package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "resort/internal/bookings/errors"
	"resort/internal/bookings/events"
	"resort/internal/bookings/validator"
	mongotx "resort/pkg/db/mongo"
	apperrors "resort/pkg/errors"
	"resort/pkg/lock"
	"resort/pkg/logger"
	"resort/pkg/model"
)

// fakeStore backs the booking, occupancy and capacity interfaces with shared
// in-memory maps so a transaction rollback can restore both collections at
// once, the way the real store does.
type fakeStore struct {
	mu          sync.Mutex
	bookings    map[string]*model.Booking
	occupancies map[string]model.Occupancy
	capacities  map[string]*model.CapacitySummary

	txErr       error
	insertErr   error
	capacityErr error
	overlapErr  error
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings:    make(map[string]*model.Booking),
		occupancies: make(map[string]model.Occupancy),
		capacities: map[string]*model.CapacitySummary{
			"cabin-1": {Capacity: 4, ExtraBeds: 2},
			"cabin-2": {Capacity: 2, ExtraBeds: 0},
		},
	}
}

func occupancyKey(accommodationID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", accommodationID, date.Format(model.DateLayout))
}

func (f *fakeStore) Create(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if booking.ID == "" {
		f.nextID++
		booking.ID = fmt.Sprintf("bk-%d", f.nextID)
	}
	booking.CreatedAt = time.Now().UTC()
	stored := *booking
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	found := *booking
	return &found, nil
}

func (f *fakeStore) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		found := *b
		out = append(out, &found)
	}
	return out, nil
}

func (f *fakeStore) FindByGuestEmail(_ context.Context, email string) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.GuestEmail == email {
			found := *b
			out = append(out, &found)
		}
	}
	return out, nil
}

func (f *fakeStore) FindOverlapping(_ context.Context, accommodationID string, checkIn, checkOut time.Time) (*model.Booking, error) {
	if f.overlapErr != nil {
		return nil, f.overlapErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.Status == model.StatusCancelled {
			continue
		}
		covers := false
		for _, id := range b.AccommodationIDs {
			if id == accommodationID {
				covers = true
				break
			}
		}
		if covers && b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn) {
			found := *b
			return &found, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (f *fakeStore) Update(_ context.Context, id string, fields bson.M) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	for field, value := range fields {
		switch field {
		case "guest_name":
			booking.GuestName = value.(string)
		case "guest_email":
			booking.GuestEmail = value.(string)
		case "status":
			booking.Status = value.(string)
		case "check_in":
			booking.CheckIn = value.(time.Time)
		case "check_out":
			booking.CheckOut = value.(time.Time)
		case "total_price":
			booking.TotalPrice = value.(float64)
		}
	}
	updated := *booking
	return &updated, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.bookings)), nil
}

// ExecuteTransaction mirrors the real manager: the callback's writes are
// all-or-nothing and non-domain failures come back wrapped.
func (f *fakeStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if f.txErr != nil {
		return fmt.Errorf("transaction failed: %w", f.txErr)
	}

	f.mu.Lock()
	bookingsSnap := make(map[string]*model.Booking, len(f.bookings))
	for k, v := range f.bookings {
		b := *v
		bookingsSnap[k] = &b
	}
	occSnap := make(map[string]model.Occupancy, len(f.occupancies))
	for k, v := range f.occupancies {
		occSnap[k] = v
	}
	f.mu.Unlock()

	if err := fn(mongo.NewSessionContext(ctx, nil)); err != nil {
		f.mu.Lock()
		f.bookings = bookingsSnap
		f.occupancies = occSnap
		f.mu.Unlock()
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

func (f *fakeStore) InsertMany(_ context.Context, occupancies []model.Occupancy) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, occ := range occupancies {
		key := occupancyKey(occ.AccommodationID, occ.Date)
		if _, taken := f.occupancies[key]; taken {
			// Ordered insert: records before the duplicate stay inserted.
			return bookingserrors.ErrNightTaken
		}
		occ.CreatedAt = time.Now().UTC()
		f.occupancies[key] = occ
	}
	return nil
}

func (f *fakeStore) DeleteByBooking(_ context.Context, bookingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for key, occ := range f.occupancies {
		if occ.BookingID == bookingID {
			delete(f.occupancies, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) Resolve(_ context.Context, accommodationID string) (*model.CapacitySummary, error) {
	if f.capacityErr != nil {
		return nil, f.capacityErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sum, ok := f.capacities[accommodationID]
	if !ok {
		return nil, bookingserrors.ErrAccommodationNotFound
	}
	found := *sum
	return &found, nil
}

func (f *fakeStore) occupancyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.occupancies)
}

func (f *fakeStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeStore) seedOccupancy(accommodationID, date, bookingID string) {
	day, _ := time.Parse(model.DateLayout, date)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.occupancies[occupancyKey(accommodationID, day)] = model.Occupancy{
		AccommodationID: accommodationID,
		Date:            day,
		BookingID:       bookingID,
	}
}

// memLockStore gives the lock manager the same atomic semantics as the real
// store without a database.
type memLockStore struct {
	mu     sync.Mutex
	leases map[string]lock.Lease
}

func newMemLockStore() *memLockStore {
	return &memLockStore{leases: make(map[string]lock.Lease)}
}

func (s *memLockStore) TryAcquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if lease, ok := s.leases[key]; ok && !lease.Expired(now) {
		return false, nil
	}
	s.leases[key] = lock.Lease{Key: key, Owner: owner, ExpiresAt: now.Add(ttl), CreatedAt: now}
	return true, nil
}

func (s *memLockStore) Release(_ context.Context, key, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lease, ok := s.leases[key]; ok && lease.Owner == owner {
		delete(s.leases, key)
	}
	return nil
}

func (s *memLockStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var deleted int64
	for key, lease := range s.leases {
		if lease.Expired(now) {
			delete(s.leases, key)
			deleted++
		}
	}
	return deleted, nil
}

type publishedEvent struct {
	topic   string
	payload map[string]any
}

type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	svc       BookingService
	store     *fakeStore
	lockStore *memLockStore
	locks     *lock.Manager
	pub       *capturePublisher
}

func newTestEnv(t *testing.T, supportsTx bool) *testEnv {
	t.Helper()
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "bookings-test"})
	store := newFakeStore()
	lockStore := newMemLockStore()
	locks := lock.NewManager(lockStore, 2*time.Millisecond, log)
	pub := &capturePublisher{}
	v := validator.NewBookingValidator(log)

	svc := NewBookingService(store, store, store, locks, pub, v, supportsTx, Config{
		LockTTL:            5 * time.Second,
		LockAcquireTimeout: 2 * time.Second,
		Log:                log,
	})
	return &testEnv{svc: svc, store: store, lockStore: lockStore, locks: locks, pub: pub}
}

func reservationRequest() *model.BookingRequest {
	return &model.BookingRequest{
		GuestName:        "Alice Novak",
		GuestEmail:       "Alice@Example.com",
		GuestPhone:       "+4791234567",
		Address:          "1 Fjord Road",
		City:             "bergen",
		PostalCode:       "5003",
		Country:          "Norway",
		AccommodationIDs: []string{"cabin-1"},
		CheckIn:          "2026-03-01",
		CheckOut:         "2026-03-03",
		TotalPrice:       420,
		Guests:           2,
	}
}

func assertConflict(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected conflict error, got nil")
	}
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestReserve_LockPath_Success(t *testing.T) {
	env := newTestEnv(t, false)

	booking, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking to be assigned an ID")
	}
	if booking.GuestEmail != "alice@example.com" {
		t.Errorf("expected normalized guest email, got %q", booking.GuestEmail)
	}
	if booking.Status != model.StatusConfirmed {
		t.Errorf("expected status %q, got %q", model.StatusConfirmed, booking.Status)
	}
	// Two nights: Mar 1 and Mar 2. Checkout day is free.
	if got := env.store.occupancyCount(); got != 2 {
		t.Errorf("expected 2 occupancy records, got %d", got)
	}
	if created := env.pub.byTopic(events.TopicBookingCreated); len(created) != 1 {
		t.Errorf("expected 1 created event, got %d", len(created))
	}
	if len(env.lockStore.leases) != 0 {
		t.Error("expected lock to be released after reservation")
	}
}

func TestReserve_SingularAccommodationID(t *testing.T) {
	env := newTestEnv(t, false)

	req := reservationRequest()
	req.AccommodationIDs = nil
	req.AccommodationID = "cabin-1"

	booking, err := env.svc.Reserve(context.Background(), req)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if len(booking.AccommodationIDs) != 1 || booking.AccommodationIDs[0] != "cabin-1" {
		t.Errorf("expected singular ID folded into list, got %v", booking.AccommodationIDs)
	}
}

func TestReserve_InvalidDates(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name     string
		checkIn  string
		checkOut string
	}{
		{"malformed check_in", "2026-3-1", "2026-03-03"},
		{"malformed check_out", "2026-03-01", "03/03/2026"},
		{"equal dates", "2026-03-01", "2026-03-01"},
		{"reversed dates", "2026-03-03", "2026-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := reservationRequest()
			req.CheckIn = tt.checkIn
			req.CheckOut = tt.checkOut

			_, err := env.svc.Reserve(context.Background(), req)
			appErr := apperrors.AsAppError(err)
			if appErr.Code != apperrors.CodeInvalidInput {
				t.Errorf("expected %s, got %v", apperrors.CodeInvalidInput, err)
			}
		})
	}

	if env.store.bookingCount() != 0 || env.store.occupancyCount() != 0 {
		t.Error("rejected requests must not write anything")
	}
}

func TestReserve_MissingAccommodation(t *testing.T) {
	env := newTestEnv(t, false)

	req := reservationRequest()
	req.AccommodationIDs = nil
	req.AccommodationID = ""

	_, err := env.svc.Reserve(context.Background(), req)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected %s, got %v", apperrors.CodeInvalidInput, err)
	}
}

func TestReserve_ValidationFailure(t *testing.T) {
	env := newTestEnv(t, false)

	req := reservationRequest()
	req.GuestEmail = "not-an-email"

	_, err := env.svc.Reserve(context.Background(), req)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected %s, got %v", apperrors.CodeValidation, err)
	}
}

func TestReserve_HalfOpenInterval(t *testing.T) {
	env := newTestEnv(t, false)

	if _, err := env.svc.Reserve(context.Background(), reservationRequest()); err != nil {
		t.Fatalf("initial reservation failed: %v", err)
	}

	// Mar 2-4 shares the night of Mar 2 with the existing Mar 1-3 stay.
	overlapping := reservationRequest()
	overlapping.CheckIn = "2026-03-02"
	overlapping.CheckOut = "2026-03-04"
	_, err := env.svc.Reserve(context.Background(), overlapping)
	assertConflict(t, err)

	// Mar 3-5 starts on the checkout day and must succeed.
	adjacent := reservationRequest()
	adjacent.CheckIn = "2026-03-03"
	adjacent.CheckOut = "2026-03-05"
	if _, err := env.svc.Reserve(context.Background(), adjacent); err != nil {
		t.Fatalf("back-to-back reservation failed: %v", err)
	}
}

func TestReserve_ConcurrentSameStay_SingleWinner(t *testing.T) {
	env := newTestEnv(t, false)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Reserve(context.Background(), reservationRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.IsConflict(err):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
	if got := env.store.bookingCount(); got != 1 {
		t.Errorf("expected 1 stored booking, got %d", got)
	}
	if got := env.store.occupancyCount(); got != 2 {
		t.Errorf("expected 2 occupancy records, got %d", got)
	}
}

func TestReserve_LockPath_OccupancyConflictRollsBack(t *testing.T) {
	env := newTestEnv(t, false)

	// A night held by a booking the overlap re-check cannot see, because the
	// occupancy store and the booking store disagree.
	env.store.seedOccupancy("cabin-1", "2026-03-02", "other-booking")

	_, err := env.svc.Reserve(context.Background(), reservationRequest())
	assertConflict(t, err)

	if got := env.store.bookingCount(); got != 0 {
		t.Errorf("expected booking to be rolled back, found %d bookings", got)
	}
	if got := env.store.occupancyCount(); got != 1 {
		t.Errorf("expected only the pre-existing occupancy to remain, got %d", got)
	}
	if len(env.pub.byTopic(events.TopicBookingCreated)) != 0 {
		t.Error("failed reservation must not publish a created event")
	}
}

func TestReserve_LockPath_StoreFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, false)
	env.store.insertErr = errors.New("write concern timeout")

	_, err := env.svc.Reserve(context.Background(), reservationRequest())
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInternal {
		t.Errorf("expected %s, got %v", apperrors.CodeInternal, err)
	}
	if got := env.store.bookingCount(); got != 0 {
		t.Errorf("expected booking to be rolled back, found %d bookings", got)
	}
}

func TestReserve_LockBusy(t *testing.T) {
	env := newTestEnv(t, false)

	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "bookings-test"})
	v := validator.NewBookingValidator(log)
	impatient := NewBookingService(env.store, env.store, env.store, env.locks, env.pub, v, false, Config{
		LockTTL:            10 * time.Second,
		LockAcquireTimeout: 30 * time.Millisecond,
		Log:                log,
	})

	req := reservationRequest()
	checkIn, _ := time.Parse(model.DateLayout, req.CheckIn)
	checkOut, _ := time.Parse(model.DateLayout, req.CheckOut)
	key := lockKey(req.AccommodationIDs, checkIn, checkOut)

	owner, err := env.locks.Acquire(context.Background(), key, 10*time.Second, time.Second)
	if err != nil {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}
	defer env.locks.Release(context.Background(), key, owner)

	_, err = impatient.Reserve(context.Background(), req)
	assertConflict(t, err)
	if env.store.bookingCount() != 0 {
		t.Error("busy reservation must not write a booking")
	}
}

func TestReserve_CapacityExceeded(t *testing.T) {
	env := newTestEnv(t, false)

	req := reservationRequest()
	req.Guests = 6 // cabin-1 sleeps 4 without extra beds

	_, err := env.svc.Reserve(context.Background(), req)
	assertConflict(t, err)
	if env.store.bookingCount() != 0 || env.store.occupancyCount() != 0 {
		t.Error("capacity rejection must happen before any write")
	}
	if len(env.lockStore.leases) != 0 {
		t.Error("capacity rejection must not take the lock")
	}
}

func TestReserve_ExtraBeds(t *testing.T) {
	env := newTestEnv(t, false)

	// cabin-1 sleeps 4 plus 2 extra beds. Requesting 5 extra beds only
	// yields the 2 that exist.
	req := reservationRequest()
	req.Guests = 6
	req.AllowExtraBeds = true
	req.ExtraBedsQty = 5

	if _, err := env.svc.Reserve(context.Background(), req); err != nil {
		t.Fatalf("expected extra beds to cover the party, got %v", err)
	}

	over := reservationRequest()
	over.CheckIn = "2026-04-01"
	over.CheckOut = "2026-04-02"
	over.Guests = 7
	over.AllowExtraBeds = true
	over.ExtraBedsQty = 5
	_, err := env.svc.Reserve(context.Background(), over)
	assertConflict(t, err)
}

func TestReserve_CapacityDataUnavailable_Proceeds(t *testing.T) {
	env := newTestEnv(t, false)
	env.store.capacityErr = errors.New("accommodations collection unreachable")

	req := reservationRequest()
	req.Guests = 40

	if _, err := env.svc.Reserve(context.Background(), req); err != nil {
		t.Fatalf("capacity data loss must not block reservations: %v", err)
	}
}

func TestReserve_UnknownAccommodation_NoCapacity(t *testing.T) {
	env := newTestEnv(t, false)

	req := reservationRequest()
	req.AccommodationIDs = []string{"no-such-cabin"}

	_, err := env.svc.Reserve(context.Background(), req)
	assertConflict(t, err)
}

func TestReserve_PublisherFailure_Swallowed(t *testing.T) {
	env := newTestEnv(t, false)
	env.pub.err = errors.New("broker unreachable")

	booking, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("publish failure must not fail the reservation: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking to be created despite publish failure")
	}
}

func TestReserve_Transactional_Success(t *testing.T) {
	env := newTestEnv(t, true)

	booking, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking to be assigned an ID")
	}
	if got := env.store.occupancyCount(); got != 2 {
		t.Errorf("expected 2 occupancy records, got %d", got)
	}
	if len(env.lockStore.leases) != 0 {
		t.Error("transactional path must not take the lock")
	}
}

func TestReserve_Transactional_DuplicateIsFinal(t *testing.T) {
	env := newTestEnv(t, true)
	env.store.seedOccupancy("cabin-1", "2026-03-01", "other-booking")

	_, err := env.svc.Reserve(context.Background(), reservationRequest())
	assertConflict(t, err)

	// The transaction rolled back and the fallback path must not have run.
	if got := env.store.bookingCount(); got != 0 {
		t.Errorf("expected no booking after aborted transaction, got %d", got)
	}
	if got := env.store.occupancyCount(); got != 1 {
		t.Errorf("expected only the pre-existing occupancy, got %d", got)
	}
	if len(env.pub.byTopic(events.TopicBookingCreated)) != 0 {
		t.Error("conflicting reservation must not publish a created event")
	}
}

func TestReserve_TransientTxError_FallsBack(t *testing.T) {
	env := newTestEnv(t, true)
	env.store.txErr = errors.New("connection reset by peer")

	booking, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking to be created by the fallback path")
	}
	if got := env.store.occupancyCount(); got != 2 {
		t.Errorf("expected 2 occupancy records, got %d", got)
	}
	if created := env.pub.byTopic(events.TopicBookingCreated); len(created) != 1 {
		t.Errorf("expected exactly 1 created event, got %d", len(created))
	}
}

func TestGetByID(t *testing.T) {
	env := newTestEnv(t, false)

	created, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	found, err := env.svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("expected booking %s, got %s", created.ID, found.ID)
	}

	_, err = env.svc.GetByID(context.Background(), "missing")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected %s, got %v", apperrors.CodeNotFound, err)
	}
}

func TestGetByGuestEmail_Normalizes(t *testing.T) {
	env := newTestEnv(t, false)

	if _, err := env.svc.Reserve(context.Background(), reservationRequest()); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	bookings, err := env.svc.GetByGuestEmail(context.Background(), "  ALICE@example.com ")
	if err != nil {
		t.Fatalf("GetByGuestEmail failed: %v", err)
	}
	if len(bookings) != 1 {
		t.Errorf("expected 1 booking, got %d", len(bookings))
	}
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t, false)

	created, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	updated, err := env.svc.Update(context.Background(), created.ID, &model.BookingUpdate{
		GuestName: "Bob Stone",
		Status:    model.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.GuestName != "Bob Stone" {
		t.Errorf("expected updated name, got %q", updated.GuestName)
	}
	if updated.Status != model.StatusCancelled {
		t.Errorf("expected cancelled status, got %q", updated.Status)
	}

	_, err = env.svc.Update(context.Background(), created.ID, &model.BookingUpdate{})
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected %s for empty update, got %v", apperrors.CodeInvalidInput, err)
	}

	_, err = env.svc.Update(context.Background(), created.ID, &model.BookingUpdate{CheckIn: "03/05/2026"})
	appErr = apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected %s for malformed date, got %v", apperrors.CodeInvalidInput, err)
	}
}

func TestDelete_ReleasesOccupanciesAndPublishes(t *testing.T) {
	env := newTestEnv(t, false)

	created, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := env.svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if env.store.bookingCount() != 0 {
		t.Error("expected booking to be deleted")
	}
	if env.store.occupancyCount() != 0 {
		t.Error("expected occupancies to be released on delete")
	}
	if deleted := env.pub.byTopic(events.TopicBookingDeleted); len(deleted) != 1 {
		t.Errorf("expected 1 deleted event, got %d", len(deleted))
	}

	err = env.svc.Delete(context.Background(), created.ID)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected %s for second delete, got %v", apperrors.CodeNotFound, err)
	}
}

func TestReleaseOccupancies_Idempotent(t *testing.T) {
	env := newTestEnv(t, false)

	created, err := env.svc.Reserve(context.Background(), reservationRequest())
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	released, err := env.svc.ReleaseOccupancies(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ReleaseOccupancies failed: %v", err)
	}
	if released != 2 {
		t.Errorf("expected 2 released nights, got %d", released)
	}

	released, err = env.svc.ReleaseOccupancies(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("second release must be a no-op, got %v", err)
	}
	if released != 0 {
		t.Errorf("expected 0 released nights on second call, got %d", released)
	}

	// The nights are free again.
	if _, err := env.svc.Reserve(context.Background(), reservationRequest()); err != nil {
		t.Fatalf("expected released nights to be bookable: %v", err)
	}
}

func TestNightsBetween(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse(model.DateLayout, s)
		return d
	}

	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     int
	}{
		{"two nights", day("2026-03-01"), day("2026-03-03"), 2},
		{"one night", day("2026-03-01"), day("2026-03-02"), 1},
		{"same day", day("2026-03-01"), day("2026-03-01"), 0},
		{"across month end", day("2026-02-27"), day("2026-03-02"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nights := nightsBetween(tt.checkIn, tt.checkOut)
			if len(nights) != tt.want {
				t.Fatalf("expected %d nights, got %d", tt.want, len(nights))
			}
			for _, n := range nights {
				if !n.Before(tt.checkOut) || n.Before(truncateToDate(tt.checkIn)) {
					t.Errorf("night %s outside [%s, %s)", n.Format(model.DateLayout),
						tt.checkIn.Format(model.DateLayout), tt.checkOut.Format(model.DateLayout))
				}
			}
		})
	}
}
