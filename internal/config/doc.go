// Package config provides centralized configuration management for the
// agentsim daemon: the HTTP listen address, the agent's goal and tick rate,
// the decision oracle provider, and the optional archive, log sink and chain
// observer backends.
package config
