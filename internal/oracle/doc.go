// Package oracle defines the decision oracle boundary: the snapshot handed to
// the oracle, the decision it returns, and the tagged action parsed out of
// the raw wire token. Provider implementations live in subpackages.
package oracle
