// Package catalog holds the static registry of purchasable services that the
// agent economy exposes. Entries are immutable for the lifetime of the
// process; the catalog can be seeded from the built-in defaults or loaded
// from a YAML file at startup.
package catalog
