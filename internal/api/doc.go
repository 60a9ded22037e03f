// Package api exposes the REST control surface consumed by the dashboard:
// start/stop/goal commands plus read access to agent state, wallet,
// inventory, activity log, service catalog and the CSV transaction export.
package api
