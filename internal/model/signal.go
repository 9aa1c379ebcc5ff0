// Package model defines the records shared by the repository, service and
// handler layers. Types here carry data only; no layer-specific behaviour.
package model

import "time"

// Signal associates a user with a CSV file held in the object store.
//
// IDENTITY:
// A signal is identified by the PAIR (UserID, SignalID), not by SignalID alone.
// Two users can both own a signal numbered 1. The backing store enforces this
// pair as a composite primary key.
//
// ObjectKey is the key of the CSV object inside the signal bucket, e.g. "prices.csv".
// Several signals may point at the same object; the object is only removed from
// the bucket once the last signal referencing it is deleted.
type Signal struct {
	UserID      string    `json:"user_id"`
	SignalID    int       `json:"signal_id"`
	Description string    `json:"signal_description"`
	ObjectKey   string    `json:"s3"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
