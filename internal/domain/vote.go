package domain

import "fmt"

// VoteDirection is the closed set of vote values.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVoteDirection validates a wire-level direction string.
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch VoteDirection(s) {
	case VoteUp, VoteDown:
		return VoteDirection(s), nil
	default:
		return "", fmt.Errorf("direction must be %q or %q: %w", VoteUp, VoteDown, ErrBadRequest)
	}
}

// EntityKind discriminates the two votable content types.
type EntityKind string

const (
	KindThread  EntityKind = "thread"
	KindComment EntityKind = "comment"
)

// VoteState is the per-entity ledger: the authoritative record set plus the
// counters derived from it. Counts must always equal the number of records
// with the matching direction. Version guards concurrent writers: every
// persisted mutation increments it and is conditional on the value read.
type VoteState struct {
	UpvoteCount   int                      `json:"upvote_count" dynamodbav:"upvote_count"`
	DownvoteCount int                      `json:"downvote_count" dynamodbav:"downvote_count"`
	VoteRecords   map[string]VoteDirection `json:"-" dynamodbav:"vote_records"`
	Version       int64                    `json:"-" dynamodbav:"version"`
}

// Apply mutates the ledger for one voter and reports whether this was a
// first-time vote (record created, as opposed to flipped or retracted).
// A repeat of the current direction retracts; the opposite direction flips.
func (vs *VoteState) Apply(userID string, direction VoteDirection) (created bool) {
	if vs.VoteRecords == nil {
		vs.VoteRecords = make(map[string]VoteDirection)
	}
	prior, exists := vs.VoteRecords[userID]
	switch {
	case !exists:
		vs.VoteRecords[userID] = direction
		vs.bump(direction, 1)
		created = true
	case prior == direction:
		delete(vs.VoteRecords, userID)
		vs.bump(direction, -1)
	default:
		vs.VoteRecords[userID] = direction
		vs.bump(prior, -1)
		vs.bump(direction, 1)
	}
	return created
}

func (vs *VoteState) bump(direction VoteDirection, delta int) {
	if direction == VoteUp {
		vs.UpvoteCount += delta
	} else {
		vs.DownvoteCount += delta
	}
}

// VoteResult is what a vote endpoint returns to the caller.
type VoteResult struct {
	UpvoteCount   int `json:"upvote_count"`
	DownvoteCount int `json:"downvote_count"`
}

// Votable is the projection of a thread or comment the vote ledger operates
// on: identity, ownership (for self-vote suppression) and the ledger itself.
// ThreadID equals ID for threads and points at the enclosing thread for
// comments, so upvote notifications can always deep-link.
type Votable struct {
	Kind     EntityKind
	ID       string
	ThreadID string
	OwnerID  string
	Title    string
	VoteState
}
