// Package chain defines the optional read-only view of the blockchain the
// simulated economy is framed against. The observer only reports network
// metadata for audit logs; no transaction is ever submitted.
package chain

import "context"

// Snapshot represents summarized network metadata for reporting.
type Snapshot struct {
	ChainID     string
	BlockNumber string
}

// Observer exposes the read-only chain capability required by the
// orchestrator's cycle audit.
type Observer interface {
	Observe(ctx context.Context) (Snapshot, error)
	Close()
}

// Config describes how to reach the chain node.
type Config struct {
	RPCURL string `json:"rpc_url"`
}
