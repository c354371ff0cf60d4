package adpcm

const (
	// MaxStepIndex is the highest valid index into the step-size table.
	MaxStepIndex = 88

	// BitsPerSample is the size of one encoded sample (a nibble).
	BitsPerSample = 4
)

// stepTable is the IMA ADPCM quantizer step-size lookup table.
var stepTable = [89]int32{
	7, 8, 9, 10, 11, 12, 13, 14,
	16, 17, 19, 21, 23, 25, 28, 31,
	34, 37, 41, 45, 50, 55, 60, 66,
	73, 80, 88, 97, 107, 118, 130, 143,
	157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658,
	724, 796, 876, 963, 1060, 1166, 1282, 1411,
	1552, 1707, 1878, 2066, 2272, 2499, 2749, 3024,
	3327, 3660, 4026, 4428, 4871, 5358, 5894, 6484,
	7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794,
	32767,
}

// indexTable maps an encoded nibble to the step-index adjustment applied
// after the sample is processed.
var indexTable = [16]int8{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

// State is the codec state carried between samples: the running predictor
// and the current index into the step-size table. A State value placed in
// a packet header lets a receiver decode that packet without having seen
// any earlier ones.
type State struct {
	Predictor int16
	StepIndex uint8
}

// Encoder compresses 16-bit PCM samples to 4-bit ADPCM nibbles. An Encoder
// is owned by exactly one encoding session and is not safe for concurrent
// use.
type Encoder struct {
	state State
}

// NewEncoder returns an Encoder with zeroed state.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// State returns the current codec state. Callers snapshot this before
// encoding a frame so the packet header describes the state the decoder
// must start from.
func (e *Encoder) State() State {
	return e.state
}

// Reset returns the encoder to its initial state. Used when a looped file
// source restarts so state never leaks across loop boundaries.
func (e *Encoder) Reset() {
	e.state = State{}
}

// EncodeSample compresses one PCM sample into a 4-bit nibble, advancing
// the encoder state. The function is total: every int16 input and every
// valid state produce a result.
func (e *Encoder) EncodeSample(sample int16) byte {
	step := stepTable[e.state.StepIndex]
	diff := int32(sample) - int32(e.state.Predictor)

	var nibble byte
	if diff < 0 {
		nibble = 8
		diff = -diff
	}

	// Greedy coarse-to-fine quantization into the three magnitude bits.
	q := step
	if diff >= q {
		nibble |= 4
		diff -= q
	}
	q >>= 1
	if diff >= q {
		nibble |= 2
		diff -= q
	}
	q >>= 1
	if diff >= q {
		nibble |= 1
	}

	e.state = advance(e.state, nibble, step)
	return nibble
}

// Decoder expands 4-bit ADPCM nibbles back to 16-bit PCM samples. It is
// the reference decoder the device firmware mirrors.
type Decoder struct {
	state State
}

// NewDecoder returns a Decoder starting from the given state, typically
// the state embedded in a packet header.
func NewDecoder(state State) *Decoder {
	return &Decoder{state: state}
}

// State returns the current codec state.
func (d *Decoder) State() State {
	return d.state
}

// DecodeSample expands one nibble into a PCM sample, advancing the
// decoder state. Only the low 4 bits of the input are significant.
func (d *Decoder) DecodeSample(nibble byte) int16 {
	nibble &= 0x0F
	step := stepTable[d.state.StepIndex]
	d.state = advance(d.state, nibble, step)
	return d.state.Predictor
}

// advance reconstructs the delta a nibble represents and applies it to
// the state. Encoder and decoder share this so they can never drift.
func advance(s State, nibble byte, step int32) State {
	delta := step >> 3
	if nibble&4 != 0 {
		delta += step
	}
	if nibble&2 != 0 {
		delta += step >> 1
	}
	if nibble&1 != 0 {
		delta += step >> 2
	}

	predictor := int32(s.Predictor)
	if nibble&8 != 0 {
		predictor -= delta
	} else {
		predictor += delta
	}
	if predictor > 32767 {
		predictor = 32767
	} else if predictor < -32768 {
		predictor = -32768
	}

	index := int(s.StepIndex) + int(indexTable[nibble])
	if index < 0 {
		index = 0
	} else if index > MaxStepIndex {
		index = MaxStepIndex
	}

	return State{Predictor: int16(predictor), StepIndex: uint8(index)}
}

// StepSize returns the quantizer step size for a state. Exposed for tests
// and diagnostics.
func StepSize(index uint8) int32 {
	if index > MaxStepIndex {
		index = MaxStepIndex
	}
	return stepTable[index]
}
