package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RequestHeader is the parsed 23-byte request header.
type RequestHeader struct {
	ClientID    [ClientIDSize]byte
	Version     uint8
	Code        uint16
	PayloadSize uint32
}

// Request is a complete request read off the wire.
type Request struct {
	Header  RequestHeader
	Payload []byte
}

// Encode renders the header in wire format. The server never sends
// requests; this is the counterpart to ReadRequest for client
// implementations and round-trip tests.
func (h *RequestHeader) Encode() []byte {
	b := make([]byte, RequestHeaderSize)
	copy(b[0:16], h.ClientID[:])
	b[16] = h.Version
	binary.LittleEndian.PutUint16(b[17:19], h.Code)
	binary.LittleEndian.PutUint32(b[19:23], h.PayloadSize)
	return b
}

// parseRequestHeader extracts a RequestHeader from exactly
// RequestHeaderSize bytes (little-endian).
func parseRequestHeader(b []byte) RequestHeader {
	var h RequestHeader
	copy(h.ClientID[:], b[0:16])
	h.Version = b[16]
	h.Code = binary.LittleEndian.Uint16(b[17:19])
	h.PayloadSize = binary.LittleEndian.Uint32(b[19:23])
	return h
}

// ReadRequest reads one complete request from r.
//
// If the declared payload size exceeds maxPayload, ReadRequest returns the
// parsed header together with ErrPayloadTooLarge without consuming the
// payload; the connection is no longer framed and must be closed by the
// caller. Any other error means no usable request was read.
func ReadRequest(r io.Reader, maxPayload uint32) (*Request, error) {
	var hdr [RequestHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	req := &Request{Header: parseRequestHeader(hdr[:])}
	if req.Header.PayloadSize > maxPayload {
		return req, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, req.Header.PayloadSize, maxPayload)
	}

	if req.Header.PayloadSize > 0 {
		req.Payload = make([]byte, req.Header.PayloadSize)
		if _, err := io.ReadFull(r, req.Payload); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	return req, nil
}

// Register is the payload of a CodeRegister request.
type Register struct {
	Name string
}

// ParseRegister decodes a CodeRegister payload.
func ParseRegister(p []byte) (Register, error) {
	if len(p) < NameSize {
		return Register{}, ErrShortPayload
	}
	return Register{Name: fieldString(p[:NameSize])}, nil
}

// PublicKey is the payload of a CodeSendPublicKey request.
type PublicKey struct {
	Name string
	Key  []byte
}

// ParsePublicKey decodes a CodeSendPublicKey payload.
func ParsePublicKey(p []byte) (PublicKey, error) {
	if len(p) < NameSize+PublicKeySize {
		return PublicKey{}, ErrShortPayload
	}
	key := make([]byte, PublicKeySize)
	copy(key, p[NameSize:NameSize+PublicKeySize])
	return PublicKey{
		Name: fieldString(p[:NameSize]),
		Key:  key,
	}, nil
}

// Reconnect is the payload of a CodeReconnect request.
type Reconnect struct {
	Name string
}

// ParseReconnect decodes a CodeReconnect payload.
func ParseReconnect(p []byte) (Reconnect, error) {
	if len(p) < NameSize {
		return Reconnect{}, ErrShortPayload
	}
	return Reconnect{Name: fieldString(p[:NameSize])}, nil
}

// FileChunk is the payload of a CodeSendFile request: one fragment of an
// encrypted file.
//
// ContentSize is the total size of the encrypted file across all fragments,
// not the size of this fragment. FileSize is the size of the file before
// encryption. Packet numbering starts at 1.
type FileChunk struct {
	ContentSize  uint32
	FileSize     uint32
	Packet       uint16
	TotalPackets uint16
	FileName     string
	Data         []byte
}

// ParseFileChunk decodes a CodeSendFile payload. Data aliases p; callers
// that retain it past the request must copy.
func ParseFileChunk(p []byte) (FileChunk, error) {
	if len(p) < FileChunkHeaderSize {
		return FileChunk{}, ErrShortPayload
	}
	return FileChunk{
		ContentSize:  binary.LittleEndian.Uint32(p[0:4]),
		FileSize:     binary.LittleEndian.Uint32(p[4:8]),
		Packet:       binary.LittleEndian.Uint16(p[8:10]),
		TotalPackets: binary.LittleEndian.Uint16(p[10:12]),
		FileName:     fieldString(p[12 : 12+NameSize]),
		Data:         p[FileChunkHeaderSize:],
	}, nil
}

// FileAck is the payload of the CRC verdict requests (CodeCRCOk,
// CodeCRCRetry, CodeCRCAbort).
type FileAck struct {
	FileName string
}

// ParseFileAck decodes a CRC verdict payload.
func ParseFileAck(p []byte) (FileAck, error) {
	if len(p) < NameSize {
		return FileAck{}, ErrShortPayload
	}
	return FileAck{FileName: fieldString(p[:NameSize])}, nil
}

// IsLast reports whether this fragment is the final one of its file.
func (c FileChunk) IsLast() bool {
	return c.Packet >= c.TotalPackets
}

// RequestName returns a human-readable name for a request opcode, for
// logging. Unknown codes render as their decimal value.
func RequestName(code uint16) string {
	switch code {
	case CodeRegister:
		return "register"
	case CodeSendPublicKey:
		return "send-public-key"
	case CodeReconnect:
		return "reconnect"
	case CodeSendFile:
		return "send-file"
	case CodeCRCOk:
		return "crc-ok"
	case CodeCRCRetry:
		return "crc-retry"
	case CodeCRCAbort:
		return "crc-abort"
	default:
		return fmt.Sprintf("unknown(%d)", code)
	}
}
