// Package actlog is the append-only, time-ordered record of everything the
// decision loop does. Entries are immutable once appended; an optional sink
// fans each entry out to an external feed (Redis or RabbitMQ) so dashboards
// can tail the activity stream.
package actlog
