package protocol

import (
	"bytes"
	"errors"
)

// Version is the protocol version the server speaks. Every response header
// carries this value regardless of the version advertised by the client.
const Version uint8 = 3

// Request opcodes.
const (
	// CodeRegister asks the server to create a new client identity.
	CodeRegister uint16 = 825

	// CodeSendPublicKey delivers the client's RSA public key and asks for
	// a session key in return.
	CodeSendPublicKey uint16 = 826

	// CodeReconnect resumes a previous registration using a stored key.
	CodeReconnect uint16 = 827

	// CodeSendFile carries one encrypted fragment of a file.
	CodeSendFile uint16 = 828

	// CodeCRCOk confirms the client computed the same checksum.
	CodeCRCOk uint16 = 900

	// CodeCRCRetry signals a checksum mismatch; the client will resend.
	CodeCRCRetry uint16 = 901

	// CodeCRCAbort signals a checksum mismatch on the final attempt.
	CodeCRCAbort uint16 = 902
)

// Response codes.
const (
	CodeRegisterSuccess   uint16 = 1600
	CodeRegisterFailure   uint16 = 1601
	CodeSessionKey        uint16 = 1602
	CodeFileAccepted      uint16 = 1603
	CodeConfirm           uint16 = 1604
	CodeReconnectApproved uint16 = 1605
	CodeReconnectDenied   uint16 = 1606
	CodeGeneralFailure    uint16 = 1607
)

// Wire sizes.
const (
	// ClientIDSize is the width of the client identifier field.
	ClientIDSize = 16

	// RequestHeaderSize is the fixed size of a request header.
	RequestHeaderSize = 23

	// ResponseHeaderSize is the fixed size of a response header.
	ResponseHeaderSize = 7

	// NameSize is the width of the fixed name and file name fields.
	NameSize = 255

	// PublicKeySize is the width of the RSA public key field (DER-encoded
	// SubjectPublicKeyInfo for a 1024-bit key).
	PublicKeySize = 160

	// FileChunkHeaderSize is the fixed prefix of a CodeSendFile payload
	// before the encrypted content begins.
	FileChunkHeaderSize = 4 + 4 + 2 + 2 + NameSize
)

// Codec errors.
var (
	// ErrShortPayload indicates the payload is smaller than the fixed
	// layout its opcode requires.
	ErrShortPayload = errors.New("payload too short for opcode")

	// ErrPayloadTooLarge indicates the declared payload size exceeds the
	// configured limit. The payload has not been read.
	ErrPayloadTooLarge = errors.New("declared payload exceeds limit")
)

// fieldString decodes a fixed-width text block: the value ends at the first
// zero byte, or spans the whole block when none is present.
func fieldString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// putFieldString writes s into a fixed-width text block, truncating values
// longer than the block. dst is assumed zeroed.
func putFieldString(dst []byte, s string) {
	copy(dst, s)
}
