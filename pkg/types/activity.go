package types

import (
	"strings"
	"time"
)

// Activity kinds.
const (
	ActivityKindCall    = "call"
	ActivityKindEmail   = "email"
	ActivityKindMeeting = "meeting"
	ActivityKindTask    = "task"
	ActivityKindNote    = "note"
	ActivityKindSale    = "sale"
)

var validActivityKinds = map[string]bool{
	ActivityKindCall:    true,
	ActivityKindEmail:   true,
	ActivityKindMeeting: true,
	ActivityKindTask:    true,
	ActivityKindNote:    true,
	ActivityKindSale:    true,
}

// Activity limits used by the read paths.
const (
	RecentActivitiesOnGet  = 5
	RecentActivitiesOnList = 3
	ActivityListLimit      = 20
)

// Activity is a logged interaction or task for a client.
type Activity struct {
	ActivityID  string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	Completed   bool      `json:"completed"`
	Responsible *string   `json:"responsible"`
	Notes       *string   `json:"notes"`
}

// ActivityInput is the payload for logging an activity. OccurredAt defaults
// to the creation time.
type ActivityInput struct {
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
	Completed   bool       `json:"completed"`
	Responsible *string    `json:"responsible"`
	Notes       *string    `json:"notes"`
}

// Validate checks the kind and title.
func (in ActivityInput) Validate() error {
	if !validActivityKinds[in.Kind] {
		return ErrInvalidKind
	}
	if strings.TrimSpace(in.Title) == "" {
		return ErrInvalidName
	}
	return nil
}
