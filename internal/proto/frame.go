package proto

import "fmt"

// Frame is a decoded packet: a type tag plus its raw, still-encoded body.
// Handlers call Extract/ExtractArray against Body once they know which
// Payload type the Type implies.
type Frame struct {
	Type Type
	Body []byte
}

// CreatePacket encodes a single payload into a Frame, mirroring the
// source's create_packet(type, &data): one header, one body.
func CreatePacket(t Type, p Payload) Frame {
	w := NewWriter()
	p.Encode(w)
	return Frame{Type: t, Body: w.Bytes()}
}

// Extract decodes body into a fresh T, reporting a decode error instead of
// panicking on a malformed or truncated packet. Call as Extract[LoginPacket](body).
func Extract[T any, PT interface {
	*T
	Payload
}](body []byte) (*T, error) {
	var v T
	p := PT(&v)
	r := NewReader(body)
	if err := p.Decode(r); err != nil {
		return nil, fmt.Errorf("proto: decode %T: %w", v, err)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("proto: decode %T: %d trailing bytes", v, r.Remaining())
	}
	return &v, nil
}

// ExtractArray decodes body as a densely packed, back-to-back sequence of
// fixed-layout T records with no count prefix — matching §4.8's "pack as
// arrays" framing for Update/Remove payloads, where the receiver derives
// the element count from len(body)/recordSize rather than a length field.
// Call as ExtractArray[UpdatePlayer](body).
func ExtractArray[T any, PT interface {
	*T
	Payload
}](body []byte) ([]T, error) {
	recordSize := recordSize[T, PT]()
	if recordSize == 0 {
		var zero T
		return nil, fmt.Errorf("proto: decode array of %T: zero-size record", zero)
	}
	if len(body)%recordSize != 0 {
		var zero T
		return nil, fmt.Errorf("proto: decode array of %T: body length %d not a multiple of record size %d", zero, len(body), recordSize)
	}

	n := len(body) / recordSize
	out := make([]T, 0, n)
	r := NewReader(body)
	for i := 0; i < n; i++ {
		var v T
		p := PT(&v)
		if err := p.Decode(r); err != nil {
			return nil, fmt.Errorf("proto: decode array element %d of %T: %w", i, v, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// CreateArrayPackets packs items into the fewest Frames of type t such
// that no Frame's body exceeds maxBodyBytes, each Frame carrying as many
// back-to-back records as fit — the array counterpart of CreatePacket,
// used for the UDP delta/snapshot broadcasts spec §4.8 requires to be
// batched rather than sent one packet per entity. Returns nil for an
// empty items slice (nothing to send).
func CreateArrayPackets[T any, PT interface {
	*T
	Payload
}](t Type, items []T, maxBodyBytes int) []Frame {
	if len(items) == 0 {
		return nil
	}
	perPacket := maxBodyBytes / recordSize[T, PT]()
	if perPacket <= 0 {
		perPacket = 1
	}

	var frames []Frame
	for len(items) > 0 {
		n := perPacket
		if n > len(items) {
			n = len(items)
		}
		w := NewWriter()
		for i := 0; i < n; i++ {
			PT(&items[i]).Encode(w)
		}
		frames = append(frames, Frame{Type: t, Body: w.Bytes()})
		items = items[n:]
	}
	return frames
}

// recordSize measures the encoded size of a zero-value T, which is
// constant across values for every fixed-layout Update/Remove payload
// (no variable-length string fields).
func recordSize[T any, PT interface {
	*T
	Payload
}]() int {
	var zero T
	w := NewWriter()
	PT(&zero).Encode(w)
	return w.Len()
}

// Encode serializes a Frame's header and body into a single contiguous
// buffer ready to hand to a transport writer.
func (f Frame) Encode() []byte {
	h := Header{Type: f.Type, Size: uint32(len(f.Body))}
	hdr := h.Encode()
	buf := make([]byte, 0, HeaderSize+len(f.Body))
	buf = append(buf, hdr[:]...)
	buf = append(buf, f.Body...)
	return buf
}
