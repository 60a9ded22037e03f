// Package ledger owns the agent's wallet balance, outstanding debt and the
// append-only transaction history. It is the sole mutator of balance and
// debt; every mutation happens in one atomic step so no partially recorded
// transaction is ever observable.
package ledger
