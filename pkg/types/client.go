package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client lifecycle states.
const (
	ClientStateProspect = "prospect"
	ClientStateActive   = "active"
	ClientStateInactive = "inactive"
	ClientStateBlocked  = "blocked"
)

// DefaultClientType is stored when a client is created without a type.
const DefaultClientType = "company"

// validClientStates is the set of recognized client state values.
var validClientStates = map[string]bool{
	ClientStateProspect: true,
	ClientStateActive:   true,
	ClientStateInactive: true,
	ClientStateBlocked:  true,
}

// ValidClientState reports whether s is a recognized lifecycle state.
func ValidClientState(s string) bool {
	return validClientStates[s]
}

// DelinquencyThreshold is the on-time payment rate (percent) below which an
// active client counts as delinquent.
const DelinquencyThreshold = 80.0

// Client is the root CRM entity: a customer or prospect.
type Client struct {
	ClientID        string          `json:"id"`
	Name            string          `json:"name"`
	LegalName       *string         `json:"legal_name"`
	ClientType      string          `json:"client_type"`
	Email           *string         `json:"email"`
	TaxID           *string         `json:"tax_id"`
	State           string          `json:"state"`
	Segment         *string         `json:"segment"`
	Industry        *string         `json:"industry"`
	Website         *string         `json:"website"`
	Notes           *string         `json:"notes"`
	CreditAvailable decimal.Decimal `json:"credit_available"`

	// Maintained by the billing side through RecordMetrics.
	TotalInvoiced        decimal.Decimal `json:"total_invoiced"`
	InvoiceCount         int             `json:"invoice_count"`
	AverageSale          decimal.Decimal `json:"average_sale"`
	OnTimePaymentRate    *float64        `json:"on_time_payment_rate"`
	DaysSinceLastContact *int            `json:"days_since_last_contact"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Contacts         []*Contact     `json:"contacts"`
	Opportunities    []*Opportunity `json:"opportunities"`
	RecentActivities []*Activity    `json:"recent_activities"`
}

// ClientCreate is the payload for creating a client, optionally with its
// first contacts.
type ClientCreate struct {
	Name            string          `json:"name"`
	LegalName       *string         `json:"legal_name"`
	ClientType      string          `json:"client_type"`
	Email           *string         `json:"email"`
	TaxID           *string         `json:"tax_id"`
	State           string          `json:"state"`
	Segment         *string         `json:"segment"`
	Industry        *string         `json:"industry"`
	Website         *string         `json:"website"`
	Notes           *string         `json:"notes"`
	CreditAvailable decimal.Decimal `json:"credit_available"`
	Contacts        []ContactInput  `json:"contacts"`
}

// Normalize applies defaults and trims the unique keys so that " a@x.com"
// and "a@x.com" collide. Blank optional keys become nil.
func (in *ClientCreate) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.ClientType = strings.TrimSpace(in.ClientType)
	if in.ClientType == "" {
		in.ClientType = DefaultClientType
	}
	if in.State == "" {
		in.State = ClientStateProspect
	}
	in.Email = trimOrNil(in.Email)
	in.TaxID = trimOrNil(in.TaxID)
}

// Validate checks the payload after Normalize.
func (in *ClientCreate) Validate() error {
	if in.Name == "" {
		return ErrInvalidName
	}
	if !ValidClientState(in.State) {
		return ErrInvalidState
	}
	if in.CreditAvailable.IsNegative() {
		return ErrInvalidAmount
	}
	for i := range in.Contacts {
		if err := in.Contacts[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ClientUpdate is a partial update: only fields that are Set are written.
// Null clears a nullable column.
type ClientUpdate struct {
	Name            Optional[string]          `json:"name"`
	LegalName       Optional[string]          `json:"legal_name"`
	ClientType      Optional[string]          `json:"client_type"`
	Email           Optional[string]          `json:"email"`
	TaxID           Optional[string]          `json:"tax_id"`
	State           Optional[string]          `json:"state"`
	Segment         Optional[string]          `json:"segment"`
	Industry        Optional[string]          `json:"industry"`
	Website         Optional[string]          `json:"website"`
	Notes           Optional[string]          `json:"notes"`
	CreditAvailable Optional[decimal.Decimal] `json:"credit_available"`
}

// Normalize trims the name, client type and unique keys; a blank email or
// tax ID clears the column.
func (in *ClientUpdate) Normalize() {
	if in.Name.HasValue() {
		in.Name.Value = strings.TrimSpace(in.Name.Value)
	}
	if in.ClientType.HasValue() {
		in.ClientType.Value = strings.TrimSpace(in.ClientType.Value)
	}
	for _, key := range []*Optional[string]{&in.Email, &in.TaxID} {
		if !key.HasValue() {
			continue
		}
		if v := trimOrNil(&key.Value); v != nil {
			key.Value = *v
		} else {
			*key = Null[string]()
		}
	}
}

// Validate rejects nulls on required columns and bad enum values.
func (in *ClientUpdate) Validate() error {
	if in.Name.Set && (in.Name.Null || strings.TrimSpace(in.Name.Value) == "") {
		return ErrInvalidName
	}
	if in.ClientType.Set && (in.ClientType.Null || strings.TrimSpace(in.ClientType.Value) == "") {
		return ErrInvalidData
	}
	if in.State.Set && (in.State.Null || !ValidClientState(in.State.Value)) {
		return ErrInvalidState
	}
	if in.CreditAvailable.Set && (in.CreditAvailable.Null || in.CreditAvailable.Value.IsNegative()) {
		return ErrInvalidAmount
	}
	return nil
}

// Empty reports whether no field is set.
func (in *ClientUpdate) Empty() bool {
	return !in.Name.Set && !in.LegalName.Set && !in.ClientType.Set &&
		!in.Email.Set && !in.TaxID.Set && !in.State.Set && !in.Segment.Set &&
		!in.Industry.Set && !in.Website.Set && !in.Notes.Set && !in.CreditAvailable.Set
}

// Client list bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ClientFilter selects a page of clients. Empty string filters are ignored.
type ClientFilter struct {
	State   string
	Segment string
	Search  string
	Skip    int
	Limit   int
}

// Validate enforces skip >= 0 and 1 <= limit <= MaxListLimit. Out of range
// values are rejected rather than clamped.
func (f ClientFilter) Validate() error {
	if f.Skip < 0 || f.Limit < 1 || f.Limit > MaxListLimit {
		return ErrInvalidPage
	}
	return nil
}

// ClientMetrics carries the billing-derived fields of a client.
type ClientMetrics struct {
	TotalInvoiced        decimal.Decimal `json:"total_invoiced"`
	InvoiceCount         int             `json:"invoice_count"`
	OnTimePaymentRate    *float64        `json:"on_time_payment_rate"`
	DaysSinceLastContact *int            `json:"days_since_last_contact"`
}

// Validate checks ranges: non-negative totals, rate within 0..100.
func (m ClientMetrics) Validate() error {
	if m.TotalInvoiced.IsNegative() || m.InvoiceCount < 0 {
		return ErrInvalidMetrics
	}
	if m.OnTimePaymentRate != nil && (*m.OnTimePaymentRate < 0 || *m.OnTimePaymentRate > 100) {
		return ErrInvalidMetrics
	}
	if m.DaysSinceLastContact != nil && *m.DaysSinceLastContact < 0 {
		return ErrInvalidMetrics
	}
	return nil
}

// AverageSale is TotalInvoiced divided by InvoiceCount, or zero.
func (m ClientMetrics) AverageSale() decimal.Decimal {
	if m.InvoiceCount == 0 {
		return decimal.Zero
	}
	return m.TotalInvoiced.Div(decimal.NewFromInt(int64(m.InvoiceCount))).Round(2)
}

// Client health labels.
const (
	HealthUnknown   = "unknown"
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthAtRisk    = "at_risk"
	HealthCritical  = "critical"
)

// ClientStats is the per-client statistics view.
type ClientStats struct {
	ClientID              string          `json:"client_id"`
	TotalInvoiced         decimal.Decimal `json:"total_invoiced"`
	InvoiceCount          int             `json:"invoice_count"`
	AverageSale           decimal.Decimal `json:"average_sale"`
	OnTimePaymentRate     *float64        `json:"on_time_payment_rate"`
	OpenOpportunityValue  decimal.Decimal `json:"open_opportunity_value"`
	DaysSinceFirstContact int             `json:"days_since_first_contact"`
	DaysSinceLastContact  *int            `json:"days_since_last_contact"`
	Health                string          `json:"health"`
}

// ClientHealth classifies a client from its payment record and contact
// recency. Without a payment record the health is unknown.
func ClientHealth(onTimeRate *float64, daysSinceLastContact *int) string {
	if onTimeRate == nil {
		return HealthUnknown
	}
	rate := *onTimeRate
	switch {
	case rate >= 95 && (daysSinceLastContact == nil || *daysSinceLastContact <= 30):
		return HealthExcellent
	case rate >= DelinquencyThreshold:
		return HealthGood
	case rate >= 50:
		return HealthAtRisk
	default:
		return HealthCritical
	}
}

// trimOrNil trims s and returns nil when the result is empty.
func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
