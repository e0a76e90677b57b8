// Package export renders verified deal records as PDF downloads.
package export

import "errors"

// ErrPDFDependencyMissing indicates headless Chrome is not installed.
var ErrPDFDependencyMissing = errors.New("pdf dependency missing")

// Result is a generated export file.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// DealRecord is everything that goes into a deal record document.
type DealRecord struct {
	ConcernID    string
	Category     string
	Summary      string
	OriginalText string
	Status       string
	OwnerName    string
	ProviderName string
	ProviderRole string
	ProposalText string
	VerifiedBy   string
	VerifiedAt   string
	Events       []DealEvent
}

// DealEvent is one audit trail row in the record.
type DealEvent struct {
	When  string
	What  string
	Actor string
}
