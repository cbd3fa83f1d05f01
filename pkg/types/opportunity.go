package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity pipeline states. Won and lost are terminal.
const (
	OpportunityStateInitial     = "initial"
	OpportunityStateContacted   = "contacted"
	OpportunityStateProposal    = "proposal"
	OpportunityStateNegotiation = "negotiation"
	OpportunityStateWon         = "won"
	OpportunityStateLost        = "lost"
)

var validOpportunityStates = map[string]bool{
	OpportunityStateInitial:     true,
	OpportunityStateContacted:   true,
	OpportunityStateProposal:    true,
	OpportunityStateNegotiation: true,
	OpportunityStateWon:         true,
	OpportunityStateLost:        true,
}

// TerminalOpportunityStates lists the states that close an opportunity.
var TerminalOpportunityStates = []string{OpportunityStateWon, OpportunityStateLost}

// ClosingSoonWindow is how far ahead the summary looks for expected closes.
const ClosingSoonWindow = 7 * 24 * time.Hour

// IsOpen reports whether the state is not terminal.
func IsOpen(state string) bool {
	return state != OpportunityStateWon && state != OpportunityStateLost
}

// Opportunity is a tracked potential sale.
type Opportunity struct {
	OpportunityID     string          `json:"id"`
	ClientID          string          `json:"client_id"`
	Title             string          `json:"title"`
	Description       *string         `json:"description"`
	State             string          `json:"state"`
	EstimatedValue    decimal.Decimal `json:"estimated_value"`
	CloseProbability  float64         `json:"close_probability"`
	ExpectedCloseDate time.Time       `json:"expected_close_date"`
	Products          []string        `json:"products"`
	Notes             *string         `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OpportunityInput is the payload for opening an opportunity.
type OpportunityInput struct {
	Title             string          `json:"title"`
	Description       *string         `json:"description"`
	State             string          `json:"state"`
	EstimatedValue    decimal.Decimal `json:"estimated_value"`
	CloseProbability  float64         `json:"close_probability"`
	ExpectedCloseDate time.Time       `json:"expected_close_date"`
	Products          []string        `json:"products"`
	Notes             *string         `json:"notes"`
}

// Normalize defaults the state to initial.
func (in *OpportunityInput) Normalize() {
	if in.State == "" {
		in.State = OpportunityStateInitial
	}
}

// Validate checks the payload after Normalize.
func (in *OpportunityInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrInvalidName
	}
	if !validOpportunityStates[in.State] {
		return ErrInvalidState
	}
	if in.EstimatedValue.IsNegative() {
		return ErrInvalidAmount
	}
	if in.CloseProbability < 0 || in.CloseProbability > 100 {
		return ErrInvalidProbability
	}
	if in.ExpectedCloseDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
