// Package mysql provides the transaction archive backends. The archive is a
// write-behind copy of the ledger's transaction history used for audit and
// dashboard queries; the in-memory ledger remains the source of truth.
package mysql
