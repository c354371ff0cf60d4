package transfer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Protocol literals exchanged over the messaging channel. The device
// firmware matches these byte for byte.
const (
	RequestFreeSpace = "REQUEST_FREE_SPACE"
	EndMarker        = "END"

	freePrefix  = "FREE:"
	startPrefix = "START:"
	chunkPrefix = "CHUNK:"
	ackPrefix   = "ACK:"
)

// CapacityReply is the device's answer to a free-space request. Resident
// is the size of the audio file currently stored on the device; an upload
// replaces that file, so its space counts as reclaimable.
type CapacityReply struct {
	FreeBytes     uint64
	ResidentBytes uint64
}

// Available returns the total space an upload may occupy. This assumes
// the device deletes its resident audio file when accepting a new upload;
// if firmware ever changes to append instead of replace, this check
// under-rejects and must be revisited.
func (r CapacityReply) Available() uint64 {
	return r.FreeBytes + r.ResidentBytes
}

// ParseCapacityReply parses "FREE:<free_bytes>:<resident_bytes>". Both
// fields must be complete decimal numbers with nothing trailing.
func ParseCapacityReply(payload []byte) (CapacityReply, error) {
	s := string(payload)
	if len(s) <= len(freePrefix) || s[:len(freePrefix)] != freePrefix {
		return CapacityReply{}, fmt.Errorf("not a capacity reply: %q", s)
	}

	rest := s[len(freePrefix):]
	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return CapacityReply{}, fmt.Errorf("malformed capacity reply %q: missing resident size", s)
	}

	free, err := strconv.ParseUint(rest[:sep], 10, 64)
	if err != nil {
		return CapacityReply{}, fmt.Errorf("malformed free size in %q: %w", s, err)
	}
	resident, err := strconv.ParseUint(rest[sep+1:], 10, 64)
	if err != nil {
		return CapacityReply{}, fmt.Errorf("malformed resident size in %q: %w", s, err)
	}

	return CapacityReply{FreeBytes: free, ResidentBytes: resident}, nil
}

// FormatCapacityReply renders a reply in wire format. Used by the device
// simulator in tests.
func FormatCapacityReply(r CapacityReply) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", freePrefix, r.FreeBytes, r.ResidentBytes))
}

// FormatStart renders the transfer preamble "START:<file_size>".
func FormatStart(fileSize int) []byte {
	return []byte(startPrefix + strconv.Itoa(fileSize))
}

// FormatChunk renders one chunk message: the ASCII header
// "CHUNK:<index>:<total>:" immediately followed by the raw chunk bytes.
func FormatChunk(index, total int, data []byte) []byte {
	header := fmt.Sprintf("%s%d:%d:", chunkPrefix, index, total)
	msg := make([]byte, 0, len(header)+len(data))
	msg = append(msg, header...)
	msg = append(msg, data...)
	return msg
}

// ParseChunk splits a chunk message back into its header fields and raw
// bytes. Used by the device simulator in tests.
func ParseChunk(payload []byte) (index, total int, data []byte, err error) {
	if !bytes.HasPrefix(payload, []byte(chunkPrefix)) {
		return 0, 0, nil, fmt.Errorf("not a chunk message")
	}

	rest := payload[len(chunkPrefix):]
	sep1 := bytes.IndexByte(rest, ':')
	if sep1 < 0 {
		return 0, 0, nil, fmt.Errorf("malformed chunk header: missing total")
	}
	sep2 := bytes.IndexByte(rest[sep1+1:], ':')
	if sep2 < 0 {
		return 0, 0, nil, fmt.Errorf("malformed chunk header: unterminated total")
	}
	sep2 += sep1 + 1

	index, err = strconv.Atoi(string(rest[:sep1]))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("malformed chunk index: %w", err)
	}
	total, err = strconv.Atoi(string(rest[sep1+1 : sep2]))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("malformed chunk total: %w", err)
	}

	return index, total, rest[sep2+1:], nil
}

// ParseAck parses "ACK:<chunk_index>".
func ParseAck(payload []byte) (int, error) {
	s := string(payload)
	if len(s) <= len(ackPrefix) || s[:len(ackPrefix)] != ackPrefix {
		return 0, fmt.Errorf("not an acknowledgment: %q", s)
	}

	index, err := strconv.Atoi(s[len(ackPrefix):])
	if err != nil {
		return 0, fmt.Errorf("malformed acknowledgment %q: %w", s, err)
	}
	return index, nil
}

// FormatAck renders an acknowledgment in wire format.
func FormatAck(index int) []byte {
	return []byte(ackPrefix + strconv.Itoa(index))
}

// ChunkCount returns how many chunks a file of size bytes needs at the
// given chunk size.
func ChunkCount(size, chunkSize int) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return (size + chunkSize - 1) / chunkSize
}
