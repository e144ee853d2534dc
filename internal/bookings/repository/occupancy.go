package repository

import (
	"context"
	"fmt"
	bookingserrors "resort/internal/bookings/errors"
	"resort/pkg/config"
	"resort/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OccupanciesCollectionName = "Occupancies"

// OccupancyRepository is the per-night occupancy ledger. A unique index on
// (accommodation_id, date) is the invariant that makes InsertMany reject a
// night already owned by another booking.
type OccupancyRepository interface {
	// InsertMany writes one record per (accommodation, night). Ordered, so
	// the first duplicate night aborts the batch; the call maps that to
	// ErrNightTaken and the caller rolls the booking back.
	InsertMany(ctx context.Context, occupancies []model.Occupancy) error

	// DeleteByBooking removes every occupancy owned by bookingID and returns
	// how many were removed. Deleting when none exist is a successful no-op.
	DeleteByBooking(ctx context.Context, bookingID string) (int64, error)
}

type mongoOccupancyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOccupancyRepository(cfg *config.Config) OccupancyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOccupancyRepository{
		cfg:        cfg,
		collection: db.Collection(OccupanciesCollectionName),
	}
}

func (r *mongoOccupancyRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoOccupancyRepository) InsertMany(ctx context.Context, occupancies []model.Occupancy) error {
	if len(occupancies) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(occupancies))
	for i := range occupancies {
		occupancies[i].CreatedAt = now
		docs = append(docs, occupancies[i])
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", bookingserrors.ErrNightTaken, err)
		}
		return fmt.Errorf("failed to insert occupancies: %w", err)
	}

	return nil
}

func (r *mongoOccupancyRepository) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteMany(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete occupancies for booking %s: %w", bookingID, err)
	}

	return res.DeletedCount, nil
}
