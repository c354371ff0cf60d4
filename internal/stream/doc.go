// Package stream implements the real-time side of audio delivery: slicing
// PCM sources into fixed-duration frames, encoding them to self-describing
// ADPCM packets, and sending them over UDP paced against a wall-clock
// anchor.
package stream
