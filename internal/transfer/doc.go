// Package transfer implements the reliable bulk-upload protocol: capacity
// negotiation over MQTT request/response topics followed by a chunked,
// per-chunk-acknowledged file transfer with timeout-driven abort.
package transfer
