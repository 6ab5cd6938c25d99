/*
Package session manages many live machine instances built from one definition.

Instances are keyed by an ID chosen by the caller and kept in memory. Creation
is atomic per ID, and every instance is named after its ID so that logs,
metrics, journals and distributed locks are scoped to it.
*/
package session
