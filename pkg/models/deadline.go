package models

// DeadlineKind selects the resolution routine for a deadline.
type DeadlineKind string

const (
	DeadlineTrial    DeadlineKind = "trial"
	DeadlineGiveaway DeadlineKind = "giveaway"
	DeadlinePurge    DeadlineKind = "purge"
)

// PurgeDeadlineID is the entity id used for the purge window singleton.
const PurgeDeadlineID = "purge"

// Deadline is an absolute Unix time at which the entity must be resolved.
type Deadline struct {
	Kind DeadlineKind `json:"kind"`
	ID   string       `json:"id"`
	At   int64        `json:"at"`
}
