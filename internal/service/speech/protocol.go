package speech

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Volcengine streaming TTS frames start with a 4-byte header:
//
//	byte 0: protocol version (hi) | header size in 4-byte words (lo)
//	byte 1: message type (hi)     | message flags (lo)
//	byte 2: serialization (hi)    | compression (lo)
//	byte 3: reserved
const protocolVersion = 0b0001

type messageType uint8

const (
	msgFullClientRequest  messageType = 0b0001
	msgFullServerResponse messageType = 0b1001
	msgAudioOnlyResponse  messageType = 0b1011
	msgError              messageType = 0b1111
)

type messageFlags uint8

const (
	flagNoSequence       messageFlags = 0b0000
	flagPositiveSequence messageFlags = 0b0001
	flagLastNoSequence   messageFlags = 0b0010
	flagNegativeSequence messageFlags = 0b0011
	flagWithEvent        messageFlags = 0b0100
)

type eventType int32

const (
	eventStartConnection    eventType = 1
	eventFinishConnection   eventType = 2
	eventConnectionStarted  eventType = 50
	eventConnectionFailed   eventType = 51
	eventConnectionFinished eventType = 52
	eventSessionFinished    eventType = 152
)

const (
	serializationNone uint8 = 0b0000
	serializationJSON uint8 = 0b0001
)

type compressionMethod uint8

const (
	compressionNone compressionMethod = 0b0000
	compressionGzip compressionMethod = 0b0001
)

type frameHeader struct {
	Version       uint8
	Size          uint8
	Type          messageType
	Flags         messageFlags
	Serialization uint8
	Compression   compressionMethod
}

type frame struct {
	Header    frameHeader
	Sequence  int32
	Event     eventType
	SessionID string
	ConnectID string
	ErrorCode uint32
	Payload   []byte
}

func (h frameHeader) bytes() []byte {
	return []byte{
		h.Version<<4 | h.Size,
		uint8(h.Type)<<4 | uint8(h.Flags),
		h.Serialization<<4 | uint8(h.Compression),
		0,
	}
}

func parseFrameHeader(b []byte) (frameHeader, error) {
	if len(b) < 4 {
		return frameHeader{}, fmt.Errorf("frame header too short: %d bytes", len(b))
	}
	h := frameHeader{
		Version:       b[0] >> 4,
		Size:          b[0] & 0x0F,
		Type:          messageType(b[1] >> 4),
		Flags:         messageFlags(b[1] & 0x0F),
		Serialization: b[2] >> 4,
		Compression:   compressionMethod(b[2] & 0x0F),
	}
	if h.Version != protocolVersion {
		return frameHeader{}, fmt.Errorf("unsupported protocol version %d", h.Version)
	}
	return h, nil
}

func (f *frame) hasSequence() bool {
	switch f.Header.Flags & 0b0011 {
	case flagPositiveSequence, flagNegativeSequence:
		return true
	}
	return false
}

func (f *frame) hasEvent() bool {
	return f.Header.Flags&flagWithEvent == flagWithEvent
}

// isLast reports the final frame of a synthesis session.
func (f *frame) isLast() bool {
	switch f.Header.Flags & 0b0011 {
	case flagLastNoSequence, flagNegativeSequence:
		return true
	}
	return false
}

func eventOmitsSession(e eventType) bool {
	switch e {
	case eventStartConnection, eventFinishConnection,
		eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return true
	}
	return false
}

func eventCarriesConnectID(e eventType) bool {
	switch e {
	case eventConnectionStarted, eventConnectionFailed, eventConnectionFinished:
		return true
	}
	return false
}

func appendSized(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func encodeFrame(f *frame) []byte {
	buf := f.Header.bytes()
	if f.hasSequence() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Event))
		if !eventOmitsSession(f.Event) {
			buf = appendSized(buf, f.SessionID)
		}
		if eventCarriesConnectID(f.Event) {
			buf = appendSized(buf, f.ConnectID)
		}
	}
	if f.Header.Type == msgError {
		buf = binary.BigEndian.AppendUint32(buf, f.ErrorCode)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	return append(buf, f.Payload...)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readSized(r io.Reader, what string) (string, error) {
	size, err := readUint32(r)
	if err != nil {
		return "", fmt.Errorf("read %s size: %w", what, err)
	}
	if size == 0 {
		return "", nil
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read %s: %w", what, err)
	}
	return string(b), nil
}

func decodeFrame(data []byte) (*frame, error) {
	r := bytes.NewReader(data)

	var raw [4]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header, err := parseFrameHeader(raw[:])
	if err != nil {
		return nil, err
	}
	if extra := int(header.Size)*4 - 4; extra > 0 {
		if _, err := r.Seek(int64(extra), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("skip extended header: %w", err)
		}
	}

	f := &frame{Header: header}
	if f.hasSequence() {
		seq, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
		f.Sequence = int32(seq)
	}
	if f.hasEvent() {
		ev, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		f.Event = eventType(int32(ev))
		if !eventOmitsSession(f.Event) {
			if f.SessionID, err = readSized(r, "session id"); err != nil {
				return nil, err
			}
		}
		if eventCarriesConnectID(f.Event) {
			if f.ConnectID, err = readSized(r, "connect id"); err != nil {
				return nil, err
			}
		}
	}
	if header.Type == msgError {
		if f.ErrorCode, err = readUint32(r); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	size, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("read payload (%d bytes): %w", size, err)
		}
	}
	return f, nil
}

func newClientRequest(payload []byte) *frame {
	return &frame{
		Header: frameHeader{
			Version:       protocolVersion,
			Size:          1,
			Type:          msgFullClientRequest,
			Flags:         flagNoSequence,
			Serialization: serializationJSON,
			Compression:   compressionNone,
		},
		Payload: payload,
	}
}
