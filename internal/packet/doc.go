// Package packet implements the streaming datagram wire format: a 7-byte
// big-endian header carrying the sequence number and the codec state at
// frame start, followed by the nibble-packed ADPCM payload.
package packet
