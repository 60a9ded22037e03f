// Package agent contains the core orchestrator of the simulated economy: the
// agent lifecycle state machine and the decision cycle scheduler that builds
// snapshots, consults the decision oracle and routes the chosen action into
// the service application engine.
package agent
