// Package billing contains the invoice and payment settlement domain:
// invoice aggregates with their line items, the payment ledger, and
// year-scoped document numbering.
package billing
