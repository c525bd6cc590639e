package rans

// RABS is a binary range-ANS coder (rANS specialized to a single
// probability, the alphabet {0,1}) used for the small yes/no
// decisions the entropy layer needs outside the main symbol alphabet
// (the attribute seam bitmap written by the codestream).
// Precision is fixed at BinaryPrecision (8 bits).

// RabsEncoder encodes a stream of bits, each under its own P(0)
// probability out of 1<<BinaryPrecision, in reverse order like
// Encoder.
type RabsEncoder struct {
	state uint32
	out   []byte
}

// NewRabsEncoder returns a RabsEncoder with state initialized to the
// base of the normalization interval.
func NewRabsEncoder() *RabsEncoder {
	return &RabsEncoder{state: uint32(1) << BinaryPrecision}
}

// EncodeBit encodes one bit; p0 is P(bit==0) scaled to
// [1, 1<<BinaryPrecision - 1].
func (e *RabsEncoder) EncodeBit(bit int, p0 uint32) {
	const base = uint32(1) << BinaryPrecision
	var freq, start uint32
	if bit == 0 {
		freq, start = p0, 0
	} else {
		freq, start = base-p0, p0
	}
	xmax := (uint32(1) << ransByteRenorm) * freq
	for e.state >= xmax {
		e.out = append(e.out, byte(e.state))
		e.state >>= ransByteRenorm
	}
	e.state = (e.state/freq)<<BinaryPrecision + (e.state % freq) + start
}

// Finish flushes the final state and returns the forward-readable
// byte stream.
func (e *RabsEncoder) Finish() []byte {
	s := e.state
	for i := 0; i < 4; i++ {
		e.out = append(e.out, byte(s))
		s >>= 8
	}
	out := make([]byte, len(e.out))
	for i, b := range e.out {
		out[len(out)-1-i] = b
	}
	return out
}

// RabsDecoder mirrors RabsEncoder.
type RabsDecoder struct {
	data  []byte
	pos   int
	state uint32
}

// NewRabsDecoder initializes a RabsDecoder over data.
func NewRabsDecoder(data []byte) (*RabsDecoder, error) {
	if len(data) < 4 {
		return nil, ErrUnderflow
	}
	state := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return &RabsDecoder{data: data, pos: 4, state: state}, nil
}

// DecodeBit returns the next bit under probability p0 = P(bit==0).
func (d *RabsDecoder) DecodeBit(p0 uint32) (int, error) {
	const base = uint32(1) << BinaryPrecision
	cf := d.state & (base - 1)
	var bit int
	var freq, start uint32
	if cf < p0 {
		bit, freq, start = 0, p0, 0
	} else {
		bit, freq, start = 1, base-p0, p0
	}
	d.state = freq*(d.state>>BinaryPrecision) + cf - start
	for d.state < base {
		if d.pos >= len(d.data) {
			return 0, ErrUnderflow
		}
		d.state = (d.state << 8) | uint32(d.data[d.pos])
		d.pos++
	}
	return bit, nil
}
