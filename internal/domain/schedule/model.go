package schedule

import "time"

// Reason records why a follow-up entry exists.
type Reason string

const (
	ReasonOutOfRange Reason = "out_of_range"
	ReasonTrend      Reason = "trend"
	ReasonManual     Reason = "manual"
)

// Status is the follow-up completion state. Entries always start pending.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Item is one scheduled follow-up for a test. ID is nil while a local
// optimistic insert has not been persisted yet.
type Item struct {
	ID        *int64    `json:"id,omitempty"`
	TestName  string    `json:"test_name"`
	Category  string    `json:"category"`
	Reason    Reason    `json:"reason"`
	Status    Status    `json:"status"`
	Doctor    *string   `json:"doctor,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Toggled returns the opposite completion state.
func (s Status) Toggled() Status {
	if s == StatusDone {
		return StatusPending
	}
	return StatusDone
}

func (r Reason) Valid() bool {
	switch r {
	case ReasonOutOfRange, ReasonTrend, ReasonManual:
		return true
	}
	return false
}
