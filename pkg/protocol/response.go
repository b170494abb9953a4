package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Response is a server response ready for encoding. The version byte is
// supplied by Encode; only the code and payload vary per response.
type Response struct {
	Code    uint16
	Payload []byte
}

// Encode renders the response as header plus payload in wire format.
func (r *Response) Encode() []byte {
	buf := make([]byte, ResponseHeaderSize+len(r.Payload))
	buf[0] = Version
	binary.LittleEndian.PutUint16(buf[1:3], r.Code)
	binary.LittleEndian.PutUint32(buf[3:7], uint32(len(r.Payload)))
	copy(buf[ResponseHeaderSize:], r.Payload)
	return buf
}

// WriteResponse encodes resp and writes it to w in a single call.
func WriteResponse(w io.Writer, resp *Response) error {
	if _, err := w.Write(resp.Encode()); err != nil {
		return fmt.Errorf("write response %d: %w", resp.Code, err)
	}
	return nil
}

// MakeRegisterSuccess builds a CodeRegisterSuccess response carrying the
// newly assigned client identifier.
func MakeRegisterSuccess(clientID [ClientIDSize]byte) *Response {
	return &Response{Code: CodeRegisterSuccess, Payload: clientID[:]}
}

// MakeRegisterFailure builds a CodeRegisterFailure response. The same code
// reports key exchange failures; it carries no payload.
func MakeRegisterFailure() *Response {
	return &Response{Code: CodeRegisterFailure}
}

// MakeSessionKey builds a CodeSessionKey response carrying the session key
// wrapped with the client's public key.
func MakeSessionKey(clientID [ClientIDSize]byte, wrappedKey []byte) *Response {
	return &Response{Code: CodeSessionKey, Payload: idPrefixed(clientID, wrappedKey)}
}

// MakeFileAccepted builds a CodeFileAccepted response reporting the server's
// checksum of the received file.
func MakeFileAccepted(clientID [ClientIDSize]byte, contentSize uint32, fileName string, crc uint32) *Response {
	payload := make([]byte, ClientIDSize+4+NameSize+4)
	copy(payload[0:ClientIDSize], clientID[:])
	binary.LittleEndian.PutUint32(payload[ClientIDSize:ClientIDSize+4], contentSize)
	putFieldString(payload[ClientIDSize+4:ClientIDSize+4+NameSize], fileName)
	binary.LittleEndian.PutUint32(payload[ClientIDSize+4+NameSize:], crc)
	return &Response{Code: CodeFileAccepted, Payload: payload}
}

// MakeConfirm builds a CodeConfirm response acknowledging a CRC verdict.
func MakeConfirm(clientID [ClientIDSize]byte) *Response {
	return &Response{Code: CodeConfirm, Payload: clientID[:]}
}

// MakeReconnectApproved builds a CodeReconnectApproved response carrying a
// fresh session key wrapped with the client's stored public key.
func MakeReconnectApproved(clientID [ClientIDSize]byte, wrappedKey []byte) *Response {
	return &Response{Code: CodeReconnectApproved, Payload: idPrefixed(clientID, wrappedKey)}
}

// MakeReconnectDenied builds a CodeReconnectDenied response. It echoes the
// identifier the client presented, known or not.
func MakeReconnectDenied(clientID [ClientIDSize]byte) *Response {
	return &Response{Code: CodeReconnectDenied, Payload: clientID[:]}
}

// MakeFailure builds a CodeGeneralFailure response.
func MakeFailure() *Response {
	return &Response{Code: CodeGeneralFailure}
}

func idPrefixed(clientID [ClientIDSize]byte, rest []byte) []byte {
	payload := make([]byte, ClientIDSize+len(rest))
	copy(payload, clientID[:])
	copy(payload[ClientIDSize:], rest)
	return payload
}
