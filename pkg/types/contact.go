package types

import (
	"strings"
	"time"
)

// Contact kinds.
const (
	ContactKindEmail   = "email"
	ContactKindPhone   = "phone"
	ContactKindMobile  = "mobile"
	ContactKindAddress = "address"
)

var validContactKinds = map[string]bool{
	ContactKindEmail:   true,
	ContactKindPhone:   true,
	ContactKindMobile:  true,
	ContactKindAddress: true,
}

// Contact is a reachable channel belonging to a client.
type Contact struct {
	ContactID string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Principal bool      `json:"principal"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactInput is the payload for adding a contact.
type ContactInput struct {
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	Principal bool   `json:"principal"`
	Verified  bool   `json:"verified"`
}

// Validate checks the kind and that the value is not blank.
func (in ContactInput) Validate() error {
	if !validContactKinds[in.Kind] {
		return ErrInvalidKind
	}
	if strings.TrimSpace(in.Value) == "" {
		return ErrInvalidValue
	}
	return nil
}
