// Package wire is the message codec for the number-stream protocol. It
// is the Go equivalent of the teacher's protocol.BitStream
// (source/protocol/raknet.go): a small length-prefixed binary writer
// and reader used to encode/decode the five message types in
// internal/protocol to and from a UDP datagram payload.
//
// Every message starts with a one-byte MessageType tag so the receiver
// can dispatch without out-of-band type information, then its fields in
// declaration order. Strings and the numbers slice are length-prefixed
// with a uint32/uint64 count respectively. All integers are big-endian;
// floats are IEEE-754 big-endian via math.Float64bits, mirroring the
// teacher's BitStream.WriteUint64/ReadUint64 convention.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ventosilenzioso/numberstream/internal/protocol"
)

// Writer accumulates an encoded message into a growable byte buffer.
type Writer struct {
	data []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{data: make([]byte, 0, 64)}
}

func (w *Writer) WriteByte(b byte) { w.data = append(w.data, b) }

func (w *Writer) WriteUint32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

func (w *Writer) WriteFloat64(f float64) {
	w.WriteUint64(math.Float64bits(f))
}

func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	w.data = append(w.data, s...)
}

func (w *Writer) WriteFloat64Slice(values []float64) {
	w.WriteUint64(uint64(len(values)))
	for _, v := range values {
		w.WriteFloat64(v)
	}
}

// Bytes returns the encoded message.
func (w *Writer) Bytes() []byte { return w.data }

// Reader parses a message out of a fixed byte slice (the exact datagram
// payload, already truncated to its received length).
type Reader struct {
	data   []byte
	offset int
}

// NewReader wraps data for sequential reads.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) need(n int) error {
	if r.offset+n > len(r.data) {
		return fmt.Errorf("wire: buffer overflow reading %d bytes at offset %d (len %d)", n, r.offset, len(r.data))
	}
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.offset : r.offset+4])
	r.offset += 4
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.offset : r.offset+8])
	r.offset += 8
	return v, nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	bits, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.offset : r.offset+int(n)])
	r.offset += int(n)
	return s, nil
}

func (r *Reader) ReadFloat64Slice() ([]float64, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.ReadFloat64()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.data) - r.offset }

// --- message-level encode/decode ---

func EncodeProtocolVersionRequest(m *protocol.ProtocolVersionRequest) []byte {
	w := NewWriter()
	w.WriteByte(byte(protocol.MessageProtocolVersionRequest))
	w.WriteUint32(m.ProtocolVersion)
	return w.Bytes()
}

func DecodeProtocolVersionRequest(data []byte) (*protocol.ProtocolVersionRequest, error) {
	r := NewReader(data)
	if _, err := expectTag(r, protocol.MessageProtocolVersionRequest); err != nil {
		return nil, err
	}
	version, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return &protocol.ProtocolVersionRequest{ProtocolVersion: version}, nil
}

func EncodeProtocolVersionResponse(m *protocol.ProtocolVersionResponse) []byte {
	w := NewWriter()
	w.WriteByte(byte(protocol.MessageProtocolVersionResponse))
	w.WriteUint32(m.ProtocolVersion)
	w.WriteUint32(uint32(m.Error))
	w.WriteString(m.ErrorMessage)
	return w.Bytes()
}

func DecodeProtocolVersionResponse(data []byte) (*protocol.ProtocolVersionResponse, error) {
	r := NewReader(data)
	if _, err := expectTag(r, protocol.MessageProtocolVersionResponse); err != nil {
		return nil, err
	}
	version, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	errCode, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	msg, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return &protocol.ProtocolVersionResponse{
		ProtocolVersion: version,
		Error:           protocol.VersionError(errCode),
		ErrorMessage:    msg,
	}, nil
}

func EncodeNumberSequenceRequest(m *protocol.NumberSequenceRequest) []byte {
	w := NewWriter()
	w.WriteByte(byte(protocol.MessageNumberSequenceRequest))
	w.WriteUint64(m.NumberCount)
	w.WriteFloat64(m.UpperBound)
	return w.Bytes()
}

func DecodeNumberSequenceRequest(data []byte) (*protocol.NumberSequenceRequest, error) {
	r := NewReader(data)
	if _, err := expectTag(r, protocol.MessageNumberSequenceRequest); err != nil {
		return nil, err
	}
	count, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	upperBound, err := r.ReadFloat64()
	if err != nil {
		return nil, err
	}
	return &protocol.NumberSequenceRequest{NumberCount: count, UpperBound: upperBound}, nil
}

func EncodeNumberSequenceResponse(m *protocol.NumberSequenceResponse) []byte {
	w := NewWriter()
	w.WriteByte(byte(protocol.MessageNumberSequenceResponse))
	w.WriteUint64(m.NumberCount)
	w.WriteUint64(m.SequenceIndex)
	w.WriteUint64(m.SequenceCount)
	w.WriteUint64(m.SequenceNumberCount)
	w.WriteFloat64Slice(m.Numbers)
	w.WriteUint64(m.Checksum)
	w.WriteUint32(uint32(m.Error))
	w.WriteString(m.ErrorMessage)
	return w.Bytes()
}

func DecodeNumberSequenceResponse(data []byte) (*protocol.NumberSequenceResponse, error) {
	r := NewReader(data)
	if _, err := expectTag(r, protocol.MessageNumberSequenceResponse); err != nil {
		return nil, err
	}
	m := &protocol.NumberSequenceResponse{}
	var err error
	if m.NumberCount, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if m.SequenceIndex, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if m.SequenceCount, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if m.SequenceNumberCount, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if m.Numbers, err = r.ReadFloat64Slice(); err != nil {
		return nil, err
	}
	if m.Checksum, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	errCode, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	m.Error = protocol.SequenceError(errCode)
	if m.ErrorMessage, err = r.ReadString(); err != nil {
		return nil, err
	}
	return m, nil
}

func EncodeNumberSequenceAckRequest(m *protocol.NumberSequenceAckRequest) []byte {
	w := NewWriter()
	w.WriteByte(byte(protocol.MessageNumberSequenceAckRequest))
	w.WriteUint64(m.SequenceIndex)
	w.WriteUint32(uint32(m.Ack))
	w.WriteUint64(m.Checksum)
	return w.Bytes()
}

func DecodeNumberSequenceAckRequest(data []byte) (*protocol.NumberSequenceAckRequest, error) {
	r := NewReader(data)
	if _, err := expectTag(r, protocol.MessageNumberSequenceAckRequest); err != nil {
		return nil, err
	}
	index, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	ack, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	checksum, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &protocol.NumberSequenceAckRequest{
		SequenceIndex: index,
		Ack:           protocol.AckVerdict(ack),
		Checksum:      checksum,
	}, nil
}

// PeekType returns the message tag without consuming it, so the session
// loops can dispatch before fully decoding.
func PeekType(data []byte) (protocol.MessageType, error) {
	if len(data) == 0 {
		return protocol.MessageUnknown, fmt.Errorf("wire: empty datagram")
	}
	return protocol.MessageType(data[0]), nil
}

func expectTag(r *Reader, want protocol.MessageType) (protocol.MessageType, error) {
	got, err := r.ReadByte()
	if err != nil {
		return protocol.MessageUnknown, err
	}
	if protocol.MessageType(got) != want {
		return protocol.MessageUnknown, fmt.Errorf("wire: expected message tag %d, got %d", want, got)
	}
	return want, nil
}
