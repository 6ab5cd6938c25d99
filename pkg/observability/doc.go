/*
Package observability provides lifecycle hooks for monitoring machines.

It includes Prometheus metrics, structured transition logging and an audit
journal recorder, all expressed as domain.LifecycleHooks that can be fanned
out with Combine.
*/
package observability
