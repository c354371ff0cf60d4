// Package server exposes the Prometheus metrics and health endpoints for
// the delivery tools.
package server
