/*
Package observability provides tools for monitoring arbor workspaces.

It turns workspace lifecycle hooks into Prometheus metrics and structured log
records, and exposes the metrics registry over HTTP.
*/
package observability
