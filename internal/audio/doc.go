// Package audio provides PCM sample sources for the streaming pipeline and
// WAV encoding/decoding for file-backed assets. File sources decode the
// whole asset up front; capture sources accumulate blocking device reads
// into full frames.
package audio
