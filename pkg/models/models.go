package models

// UsageEvent is a single chat message submitted for credit pricing.
type UsageEvent struct {
	Message  string `json:"message"`
	ReportID string `json:"report_id,omitempty"`
}

// CreditResult is the priced outcome of a usage event, rounded to 2 decimals.
type CreditResult struct {
	Credits float64 `json:"credits"`
}

// CreditSource says which path produced a credit value.
type CreditSource string

const (
	// CreditSourceText means the text-based rule chain priced the message.
	CreditSourceText CreditSource = "text"
	// CreditSourceReport means a report's precomputed cost was used.
	CreditSourceReport CreditSource = "report"
	// CreditSourceFallback means a report lookup failed and the text chain
	// priced the message instead.
	CreditSourceFallback CreditSource = "fallback"
)

// UsageEntry is the priced record for one message in a billing period.
type UsageEntry struct {
	MessageID   int64   `json:"message_id"`
	Timestamp   string  `json:"timestamp"`
	ReportName  *string `json:"report_name"`
	CreditsUsed float64 `json:"credits_used"`
}

// UsageResponse is the current-period usage payload.
type UsageResponse struct {
	Usage []UsageEntry `json:"usage"`
}
