// Package adpcm implements the IMA 4-bit adaptive differential PCM codec
// used by the streaming transport. Encoder and decoder share the standard
// 89-entry step-size table and must stay bit-exact with the device firmware.
package adpcm
