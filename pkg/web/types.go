// Package web provides HTTP request and response types for the party API.
package web

// CreatePartyRequest represents the request body for starting a new party.
type CreatePartyRequest struct {
	Inputs   []string       `json:"inputs"             validate:"required,min=1,dive,min=1"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FeedbackRequest represents the request body for adding feedback to a
// running party.
type FeedbackRequest struct {
	Feedback string         `json:"feedback"           validate:"required,min=1"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BackupResponse reports where a party snapshot was written.
type BackupResponse struct {
	PartyID string `json:"party_id"`
	Path    string `json:"path"`
}
