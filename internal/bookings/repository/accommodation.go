package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "resort/internal/bookings/errors"
	"resort/pkg/config"
	"resort/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	AccommodationsCollectionName = "Accommodations"
	RoomsCollectionName          = "Rooms"
)

// CapacityResolver is the read-only capacity collaborator. Catalog CRUD
// belongs to another service; this side only needs guest capacity and the
// extra-bed allowance, and callers must tolerate it being unavailable.
type CapacityResolver interface {
	Resolve(ctx context.Context, accommodationID string) (*model.CapacitySummary, error)
}

type mongoCapacityResolver struct {
	cfg            *config.Config
	accommodations *mongo.Collection
	rooms          *mongo.Collection
}

func NewMongoCapacityResolver(cfg *config.Config) CapacityResolver {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCapacityResolver{
		cfg:            cfg,
		accommodations: db.Collection(AccommodationsCollectionName),
		rooms:          db.Collection(RoomsCollectionName),
	}
}

// Resolve computes the guest capacity of an accommodation: a room's own
// capacity when the ID names a room, otherwise the accommodation's capacity,
// replaced by the sum over its rooms when it has any.
func (r *mongoCapacityResolver) Resolve(ctx context.Context, accommodationID string) (*model.CapacitySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	err := r.rooms.FindOne(ctx, bson.M{"_id": accommodationID}).Decode(&room)
	if err == nil {
		return &model.CapacitySummary{
			Capacity:  capacityOf(room.Capacity, room.Sleeps),
			ExtraBeds: room.ExtraBeds,
		}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}

	acc, err := r.findAccommodation(ctx, accommodationID)
	if err != nil {
		return nil, err
	}

	summary := &model.CapacitySummary{
		Capacity:  capacityOf(acc.Capacity, acc.Sleeps),
		ExtraBeds: acc.ExtraBeds,
	}

	// An accommodation with rooms derives capacity from them.
	rooms, err := r.findRooms(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if len(rooms) > 0 {
		summary.Capacity = 0
		summary.ExtraBeds = 0
		for _, rm := range rooms {
			summary.Capacity += capacityOf(rm.Capacity, rm.Sleeps)
			summary.ExtraBeds += rm.ExtraBeds
		}
	}

	return summary, nil
}

func (r *mongoCapacityResolver) findAccommodation(ctx context.Context, id string) (*model.Accommodation, error) {
	// Legacy catalog entries are keyed by plain strings, newer ones by
	// ObjectID; try both.
	var acc model.Accommodation
	if oid, oidErr := primitive.ObjectIDFromHex(id); oidErr == nil {
		if err := r.accommodations.FindOne(ctx, bson.M{"_id": oid}).Decode(&acc); err == nil {
			acc.ID = id
			return &acc, nil
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to look up accommodation: %w", err)
		}
	}

	err := r.accommodations.FindOne(ctx, bson.M{"_id": id}).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrAccommodationNotFound
		}
		return nil, fmt.Errorf("failed to look up accommodation: %w", err)
	}

	return &acc, nil
}

func (r *mongoCapacityResolver) findRooms(ctx context.Context, accommodationID string) ([]model.Room, error) {
	cursor, err := r.rooms.Find(ctx, bson.M{"accommodation_id": accommodationID})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []model.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}

func capacityOf(capacity, sleeps int) int {
	if capacity > 0 {
		return capacity
	}
	return sleeps
}
