// Package lead defines the portal's lead record model and the
// normalization rules applied to raw form input before storage.
package lead

import (
	"strings"
	"time"
)

// Status values observed on leads. Transitions are unconstrained; a manager
// may set any string, these are the ones the dashboards and the stats
// aggregation recognise.
const (
	StatusPending    = "Pending"
	StatusCharged    = "Charged"
	StatusDeclined   = "Declined"
	StatusChargeback = "Chargeback"
)

// Lead is one submitted order/lead record. Category-specific fields that a
// form does not carry stay empty and round-trip through storage untouched.
type Lead struct {
	RecordID      string    `json:"record_id" bson:"record_id"`
	Category      string    `json:"type" bson:"category"`
	Agent         string    `json:"agent" bson:"agent"`
	ClientName    string    `json:"client_name" bson:"client_name"`
	Phone         string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Address       string    `json:"address,omitempty" bson:"address,omitempty"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	CardHolder    string    `json:"card_holder,omitempty" bson:"card_holder,omitempty"`
	CardNumber    string    `json:"card_number,omitempty" bson:"card_number,omitempty"`
	ExpDate       string    `json:"exp_date,omitempty" bson:"exp_date,omitempty"`
	CVC           string    `json:"cvc,omitempty" bson:"cvc,omitempty"`
	ChargeAmount  float64   `json:"charge_amount" bson:"charge_amount"`
	ChargeDisplay string    `json:"charge_display" bson:"charge_display"`
	LLC           string    `json:"llc,omitempty" bson:"llc,omitempty"`
	Provider      string    `json:"provider,omitempty" bson:"provider,omitempty"`
	PinCode       string    `json:"pin_code,omitempty" bson:"pin_code,omitempty"`
	Status        string    `json:"status" bson:"status"`
	Date          string    `json:"date" bson:"date"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	Timestamp     string    `json:"timestamp" bson:"timestamp"`
}

// Candidate is the lightweight summary returned when a lookup matches more
// than one record and a human has to disambiguate.
type Candidate struct {
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	Charge    string `json:"charge"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// NormalizeStatus canonicalises a status value for comparison: trimmed,
// case-insensitive, first letter upper.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// IsCharged reports whether a status counts as a completed charge.
func IsCharged(status string) bool {
	return NormalizeStatus(status) == StatusCharged
}
