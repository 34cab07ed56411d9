package models

import "time"

// StatusPending is the status written at create time, before the first
// reconciliation against the authority has reported back.
const StatusPending = "pending"

// Record tracks the provisioning state of one hostname's certificate.
// Status carries whatever string the authority last reported; the engine
// treats it as opaque and never enumerates the authority's vocabulary.
type Record struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
