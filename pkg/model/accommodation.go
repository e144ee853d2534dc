package model

// Accommodation is the catalog view this service needs: just enough to
// resolve guest capacity. Full catalog CRUD lives in another service.
type Accommodation struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string `json:"name" bson:"name"`
	Capacity  int    `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Sleeps    int    `json:"sleeps,omitempty" bson:"sleeps,omitempty"`
	ExtraBeds int    `json:"extra_beds,omitempty" bson:"extra_beds,omitempty"`
}

// Room is a sub-resource of an accommodation; when rooms exist, the
// accommodation's capacity is the sum of its rooms.
type Room struct {
	ID              string `json:"id,omitempty" bson:"_id,omitempty"`
	AccommodationID string `json:"accommodation_id" bson:"accommodation_id"`
	Capacity        int    `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Sleeps          int    `json:"sleeps,omitempty" bson:"sleeps,omitempty"`
	ExtraBeds       int    `json:"extra_beds,omitempty" bson:"extra_beds,omitempty"`
}

// CapacitySummary is what the capacity collaborator hands back: base guest
// capacity plus how many extra beds could be added on request.
type CapacitySummary struct {
	Capacity  int
	ExtraBeds int
}
