// Package service implements the reservation coordinator: it arbitrates
// between a transactional reservation path and a lock-guarded fallback
// path so that a booking and its per-night occupancy records are committed
// together exactly once, even under concurrent requests for the same stay.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "resort/internal/bookings/errors"
	"resort/internal/bookings/events"
	"resort/internal/bookings/repository"
	"resort/internal/bookings/validator"
	apperrors "resort/pkg/errors"
	"resort/pkg/lock"
	"resort/pkg/logger"
	"resort/pkg/model"
	"resort/pkg/sanitizer"
)

const msgAlreadyBooked = "Accommodation is already booked for the selected dates"

// BookingService defines the business operations for bookings.
type BookingService interface {
	Reserve(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	ReleaseOccupancies(ctx context.Context, id string) (int64, error)
}

// Config carries the coordinator's tunables and collaborators that are not
// injected as interfaces.
type Config struct {
	LockTTL            time.Duration
	LockAcquireTimeout time.Duration
	Log                *logger.Logger
}

type bookingService struct {
	repo        repository.BookingRepository
	occupancies repository.OccupancyRepository
	capacity    repository.CapacityResolver
	locks       *lock.Manager
	publisher   events.Publisher
	validator   *validator.BookingValidator
	supportsTx  bool
	cfg         Config
}

// NewBookingService wires the coordinator. supportsTx reflects whether the
// backing deployment can run multi-document transactions; it is probed once
// at startup, not rediscovered per request.
func NewBookingService(
	repo repository.BookingRepository,
	occupancies repository.OccupancyRepository,
	capacity repository.CapacityResolver,
	locks *lock.Manager,
	publisher events.Publisher,
	v *validator.BookingValidator,
	supportsTx bool,
	cfg Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		occupancies: occupancies,
		capacity:    capacity,
		locks:       locks,
		publisher:   publisher,
		validator:   v,
		supportsTx:  supportsTx,
		cfg:         cfg,
	}
}

// Reserve creates a booking together with its occupancy records. When the
// deployment supports transactions both writes happen atomically; a
// transient transaction failure falls back to the lock-guarded path. A
// uniqueness conflict on either path is final and reported as a conflict,
// never retried on the other path.
func (s *bookingService) Reserve(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	booking, err := s.buildBooking(req)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(booking); err != nil {
		return nil, validationError("Booking validation failed", err)
	}

	if err := s.checkCapacity(ctx, req, booking); err != nil {
		return nil, err
	}

	nights := nightsBetween(booking.CheckIn, booking.CheckOut)

	if s.supportsTx {
		created, txErr := s.reserveTransactional(ctx, booking, nights)
		if txErr == nil {
			s.notify(ctx, events.TopicBookingCreated, created)
			return created, nil
		}
		if apperrors.IsConflict(txErr) {
			// Another request owns at least one of the nights. That verdict
			// is final; retrying on the fallback path would just lose again.
			return nil, txErr
		}
		s.cfg.Log.Warn("Transactional reservation failed, falling back to lock-guarded path",
			"error", txErr)
		// The failed attempt may have stamped an ID on the in-memory booking.
		booking.ID = ""
	}

	created, err := s.reserveWithLock(ctx, booking, nights)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, events.TopicBookingCreated, created)
	return created, nil
}

// reserveTransactional commits the booking and its occupancies in a single
// multi-document transaction. A duplicate night aborts the transaction and
// surfaces as a conflict; any other failure is reported as transient so the
// caller can fall back.
func (s *bookingService) reserveTransactional(ctx context.Context, booking *model.Booking, nights []time.Time) (*model.Booking, error) {
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return err
		}
		return s.occupancies.InsertMany(sessCtx, occupancyRecords(booking, nights))
	})
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNightTaken) || mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Conflict(msgAlreadyBooked)
		}
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrTransientStore, err)
	}
	return booking, nil
}

// reserveWithLock serializes reservations for the same accommodation set and
// date range behind a lease, re-checks for overlapping bookings inside the
// critical section, then writes the booking and its occupancies. If the
// occupancy write still collides (a writer the lock key did not cover), the
// booking is rolled back so no half-committed reservation survives.
func (s *bookingService) reserveWithLock(ctx context.Context, booking *model.Booking, nights []time.Time) (*model.Booking, error) {
	key := lockKey(booking.AccommodationIDs, booking.CheckIn, booking.CheckOut)

	owner, err := s.locks.Acquire(ctx, key, s.cfg.LockTTL, s.cfg.LockAcquireTimeout)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return nil, apperrors.Conflict("Accommodation is busy, please try again")
		}
		return nil, apperrors.Internal("Failed to acquire reservation lock", err)
	}
	// Release must run even when the request context is already cancelled,
	// otherwise the lease lingers until its TTL expires.
	defer s.locks.Release(context.WithoutCancel(ctx), key, owner)

	for _, accID := range booking.AccommodationIDs {
		existing, err := s.repo.FindOverlapping(ctx, accID, booking.CheckIn, booking.CheckOut)
		if err != nil && !errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.Internal("Failed to check for overlapping bookings", err)
		}
		if existing != nil {
			return nil, apperrors.Conflict(msgAlreadyBooked)
		}
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	if err := s.occupancies.InsertMany(ctx, occupancyRecords(booking, nights)); err != nil {
		// The ordered insert may have landed some nights before failing.
		if _, delErr := s.occupancies.DeleteByBooking(ctx, booking.ID); delErr != nil {
			s.cfg.Log.Error("Failed to roll back occupancies after occupancy write failure",
				"booking_id", booking.ID,
				"error", delErr)
		}
		if delErr := s.repo.Delete(ctx, booking.ID); delErr != nil {
			s.cfg.Log.Error("Failed to roll back booking after occupancy write failure",
				"booking_id", booking.ID,
				"error", delErr)
		}
		if errors.Is(err, bookingserrors.ErrNightTaken) {
			return nil, apperrors.Conflict(msgAlreadyBooked)
		}
		return nil, apperrors.Internal("Failed to write occupancy records", err)
	}

	return booking, nil
}

// buildBooking normalizes the inbound request into a Booking: the singular
// accommodation field folds into the list, dates are parsed from their wire
// format and guest fields are sanitized.
func (s *bookingService) buildBooking(req *model.BookingRequest) (*model.Booking, error) {
	ids := req.AccommodationIDs
	if len(ids) == 0 && req.AccommodationID != "" {
		ids = []string{req.AccommodationID}
	}
	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("accommodation_id is required")
	}

	checkIn, err := time.Parse(model.DateLayout, req.CheckIn)
	if err != nil {
		return nil, apperrors.InvalidInput("check_in must be a date in YYYY-MM-DD format")
	}
	checkOut, err := time.Parse(model.DateLayout, req.CheckOut)
	if err != nil {
		return nil, apperrors.InvalidInput("check_out must be a date in YYYY-MM-DD format")
	}
	if !checkOut.After(checkIn) {
		return nil, apperrors.InvalidInput("check_in must be before check_out")
	}

	guests := req.Guests
	if guests == 0 {
		guests = req.Adults + req.Children
	}

	return &model.Booking{
		AccommodationIDs: ids,
		GuestName:        sanitizer.NormalizeName(req.GuestName),
		GuestEmail:       sanitizer.NormalizeEmail(req.GuestEmail),
		GuestPhone:       sanitizer.TrimAndNormalize(req.GuestPhone),
		Address:          sanitizer.TrimAndNormalize(req.Address),
		City:             sanitizer.NormalizeCity(req.City),
		PostalCode:       sanitizer.TrimAndNormalize(req.PostalCode),
		Country:          sanitizer.TrimAndNormalize(req.Country),
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Guests:           guests,
		Adults:           req.Adults,
		Children:         req.Children,
		TotalPrice:       req.TotalPrice,
		PaymentMethod:    sanitizer.TrimAndNormalize(req.PaymentMethod),
		Status:           model.StatusConfirmed,
		UserID:           req.UserID,
	}, nil
}

// checkCapacity rejects a party that cannot fit in the selected
// accommodations. The check is best effort: if capacity data cannot be
// resolved the reservation proceeds, because availability is guarded by the
// occupancy ledger, not by this pre-check.
func (s *bookingService) checkCapacity(ctx context.Context, req *model.BookingRequest, booking *model.Booking) error {
	if booking.Guests <= 0 {
		return nil
	}

	totalCapacity := 0
	totalExtraBeds := 0
	for _, id := range booking.AccommodationIDs {
		sum, err := s.capacity.Resolve(ctx, id)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrAccommodationNotFound) {
				// Unknown accommodation contributes no capacity.
				continue
			}
			s.cfg.Log.Warn("Capacity check skipped, capacity data unavailable",
				"accommodation_id", id,
				"error", err)
			return nil
		}
		totalCapacity += sum.Capacity
		totalExtraBeds += sum.ExtraBeds
	}

	if req.AllowExtraBeds && req.ExtraBedsQty > 0 {
		totalCapacity += min(totalExtraBeds, req.ExtraBedsQty)
	}

	if booking.Guests > totalCapacity {
		return apperrors.Conflict(fmt.Sprintf(
			"Selected accommodation sleeps %d guests, %d requested", totalCapacity, booking.Guests))
	}
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var (
		bookings  []*model.Booking
		total     int64
		findErr   error
		countErr  error
		doneFind  = make(chan struct{})
		doneCount = make(chan struct{})
	)

	go func() {
		defer close(doneFind)
		bookings, findErr = s.repo.FindAll(ctx, limit, offset)
	}()
	go func() {
		defer close(doneCount)
		total, countErr = s.repo.Count(ctx)
	}()
	<-doneFind
	<-doneCount

	if findErr != nil {
		return nil, 0, apperrors.Internal("Failed to fetch bookings", findErr)
	}
	if countErr != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", countErr)
	}
	return bookings, total, nil
}

func (s *bookingService) GetByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	normalized := sanitizer.NormalizeEmail(email)
	if normalized == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	bookings, err := s.repo.FindByGuestEmail(ctx, normalized)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch bookings by guest", err)
	}
	return bookings, nil
}

// Update applies a partial update to a booking. Date or accommodation
// changes do not currently re-validate the occupancy ledger; the updated
// stay keeps the nights of the original reservation.
func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validationError("Booking update validation failed", err)
	}

	fields, err := updateFields(updates)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.InvalidInput("No fields to update")
	}

	booking, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return booking, nil
}

// Delete removes a booking and frees its occupancy records. Occupancy
// cleanup failures are logged but do not block the delete, the nights can
// still be reclaimed through ReleaseOccupancies.
func (s *bookingService) Delete(ctx context.Context, id string) error {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err, id)
	}

	if _, err := s.occupancies.DeleteByBooking(ctx, booking.ID); err != nil {
		s.cfg.Log.Error("Failed to release occupancies for deleted booking",
			"booking_id", booking.ID,
			"error", err)
	}

	if err := s.repo.Delete(ctx, booking.ID); err != nil {
		return mapLookupError(err, id)
	}

	s.notify(ctx, events.TopicBookingDeleted, booking)
	return nil
}

// ReleaseOccupancies frees every night held by a booking without touching
// the booking itself. Releasing a booking with no occupancies is a no-op.
func (s *bookingService) ReleaseOccupancies(ctx context.Context, id string) (int64, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return 0, mapLookupError(err, id)
	}

	released, err := s.occupancies.DeleteByBooking(ctx, booking.ID)
	if err != nil {
		return 0, apperrors.Internal("Failed to release occupancies", err)
	}
	return released, nil
}

// notify publishes a booking lifecycle event. Publishing is best effort:
// failures are logged and never affect the outcome of the operation.
func (s *bookingService) notify(ctx context.Context, topic string, booking *model.Booking) {
	payload := map[string]any{
		"booking_id":  booking.ID,
		"guest_email": booking.GuestEmail,
		"check_in":    booking.CheckIn.Format(model.DateLayout),
		"check_out":   booking.CheckOut.Format(model.DateLayout),
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"event", topic,
			"booking_id", booking.ID,
			"error", err)
	}
}

// lockKey identifies the accommodation set and date range a reservation
// contends for. Two requests for the same set and range always produce the
// same key, so they serialize behind the same lease.
func lockKey(accommodationIDs []string, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("accom:%s:%s:%s",
		strings.Join(accommodationIDs, ","),
		checkIn.Format(model.DateLayout),
		checkOut.Format(model.DateLayout))
}

func occupancyRecords(booking *model.Booking, nights []time.Time) []model.Occupancy {
	records := make([]model.Occupancy, 0, len(booking.AccommodationIDs)*len(nights))
	for _, accID := range booking.AccommodationIDs {
		for _, night := range nights {
			records = append(records, model.Occupancy{
				AccommodationID: accID,
				Date:            night,
				BookingID:       booking.ID,
			})
		}
	}
	return records
}

func updateFields(updates *model.BookingUpdate) (bson.M, error) {
	fields := bson.M{}

	if updates.GuestName != "" {
		fields["guest_name"] = sanitizer.NormalizeName(updates.GuestName)
	}
	if updates.GuestEmail != "" {
		fields["guest_email"] = sanitizer.NormalizeEmail(updates.GuestEmail)
	}
	if updates.GuestPhone != "" {
		fields["guest_phone"] = sanitizer.TrimAndNormalize(updates.GuestPhone)
	}
	if updates.Address != "" {
		fields["address"] = sanitizer.TrimAndNormalize(updates.Address)
	}
	if updates.City != "" {
		fields["city"] = sanitizer.NormalizeCity(updates.City)
	}
	if updates.PostalCode != "" {
		fields["postal_code"] = sanitizer.TrimAndNormalize(updates.PostalCode)
	}
	if updates.Country != "" {
		fields["country"] = sanitizer.TrimAndNormalize(updates.Country)
	}
	if len(updates.AccommodationIDs) > 0 {
		fields["accommodation_ids"] = updates.AccommodationIDs
	}
	if updates.CheckIn != "" {
		checkIn, err := time.Parse(model.DateLayout, updates.CheckIn)
		if err != nil {
			return nil, apperrors.InvalidInput("check_in must be a date in YYYY-MM-DD format")
		}
		fields["check_in"] = checkIn
	}
	if updates.CheckOut != "" {
		checkOut, err := time.Parse(model.DateLayout, updates.CheckOut)
		if err != nil {
			return nil, apperrors.InvalidInput("check_out must be a date in YYYY-MM-DD format")
		}
		fields["check_out"] = checkOut
	}
	if updates.Guests != nil {
		fields["guests"] = *updates.Guests
	}
	if updates.Adults != nil {
		fields["adults"] = *updates.Adults
	}
	if updates.Children != nil {
		fields["children"] = *updates.Children
	}
	if updates.TotalPrice != nil {
		fields["total_price"] = *updates.TotalPrice
	}
	if updates.PaymentMethod != "" {
		fields["payment_method"] = sanitizer.TrimAndNormalize(updates.PaymentMethod)
	}
	if updates.Status != "" {
		fields["status"] = updates.Status
	}

	return fields, nil
}

// validationError folds a validator failure into the shared error shape,
// exposing per-field messages as details.
func validationError(message string, err error) *apperrors.AppError {
	details := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			details[ve.Field] = ve.Message
		}
	} else {
		details["error"] = err.Error()
	}
	return apperrors.Validation(message, details)
}

func mapLookupError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	default:
		return apperrors.Internal("Booking lookup failed", err)
	}
}
