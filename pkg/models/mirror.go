package models

import "time"

// MirroredDocument is the MongoDB copy of one persisted state document.
type MirroredDocument struct {
	Kind      string    `bson:"_id" json:"kind"`
	Body      string    `bson:"body" json:"body"`
	Bytes     int       `bson:"bytes" json:"bytes"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
