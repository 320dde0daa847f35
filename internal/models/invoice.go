package models

import "errors"

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "Draft"
	InvoiceSent    InvoiceStatus = "Sent"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

var ErrInvalidInvoiceTransition = errors.New("invalid invoice status transition")

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue:
		return true
	default:
		return false
	}
}

// CanAdvanceTo reports whether an invoice in status s may move to next.
// Invoices only move toward Paid or Overdue; Paid is terminal.
func (s InvoiceStatus) CanAdvanceTo(next InvoiceStatus) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case InvoiceDraft:
		return next != InvoiceDraft
	case InvoiceSent:
		return next == InvoicePaid || next == InvoiceOverdue
	case InvoiceOverdue:
		return next == InvoicePaid
	default:
		return false
	}
}

// Invoice is a billing record tied to a trip.
type Invoice struct {
	ID       string        `json:"id"`
	OrgID    string        `json:"orgId,omitempty"`
	Customer string        `json:"customer"`
	Amount   float64       `json:"amount"`
	Status   InvoiceStatus `json:"status"`
	DueDate  string        `json:"dueDate"`
}
