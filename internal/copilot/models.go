package copilot

import "time"

// Report is a precomputed billing report held by the Copilot API. When a
// message references one, its CreditCost overrides the text-based chain.
type Report struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	CreditCost float64 `json:"credit_cost"`
}

// Message is a chat message from the current billing period.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	ReportID  *int64    `json:"report_id"`
}

// messagesResponse is the wire shape of GET /messages/current-period.
type messagesResponse struct {
	Messages []Message `json:"messages"`
}
