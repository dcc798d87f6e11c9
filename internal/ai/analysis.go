package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Analysis statuses.
const (
	StatusPending       = "Pending"
	StatusCompleted     = "Completed"
	StatusFailed        = "Failed"
	StatusSkipped       = "Skipped"
	StatusQuotaExceeded = "QuotaExceeded"
)

// Severity levels emitted by the model.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Analysis is the fixed-shape record produced for every analyzed document.
// The client guarantees a non-nil Analysis for every call: failures are
// reported through Status and Summary, never as errors.
type Analysis struct {
	Summary     string   `json:"summary"`
	ExpiryDate  *string  `json:"expiryDate,omitempty"`
	RenewalDate *string  `json:"renewalDate,omitempty"`
	Risks       []string `json:"risks"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`

	SuggestedCategory    string               `json:"suggestedCategory,omitempty"`
	IsSubscription       FlexBool             `json:"isSubscription,omitempty"`
	IsScam               FlexBool             `json:"isScam,omitempty"`
	ScamReason           string               `json:"scamReason,omitempty"`
	SeverityLevel        string               `json:"severityLevel,omitempty"`
	RequiresAction       FlexBool             `json:"requiresAction,omitempty"`
	ActionRecommendation string               `json:"actionRecommendation,omitempty"`
	SubscriptionDetails  *SubscriptionDetails `json:"subscriptionDetails,omitempty"`
}

// SubscriptionDetails is the nested sub-object attached when the model
// believes the document describes a subscription.
type SubscriptionDetails struct {
	Name     string    `json:"name"`
	Price    FlexFloat `json:"price"`
	Currency string    `json:"currency"`
	Period   string    `json:"period"`
}

// FlexBool accepts booleans or their string forms on the wire. The model
// occasionally returns "true" instead of true; normalizing here keeps the
// rest of the system strictly typed.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`, "null", `""`:
		*b = false
	default:
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			*b = false
			return nil
		}
		*b = FlexBool(v)
	}
	return nil
}

// Bool returns the underlying value.
func (b FlexBool) Bool() bool { return bool(b) }

// FlexFloat accepts numbers or numeric strings on the wire. Unparseable
// values decode to zero rather than failing the whole analysis.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 returns the underlying value.
func (f FlexFloat) Float64() float64 { return float64(f) }
