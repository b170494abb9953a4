// Package protocol implements the cipherdrop transfer protocol codec.
//
// # Overview
//
// This package handles the binary request/response framing spoken by the
// deployed clients over plain TCP. Requests carry a fixed 23-byte header
// followed by an opcode-specific payload; responses carry a fixed 7-byte
// header followed by a code-specific payload.
//
// # Request Header Structure
//
// The request header is exactly 23 bytes:
//
//	Offset  Size  Field        Description
//	------  ----  -----------  ----------------------------------
//	0       16    ClientID     Client identifier (raw UUID bytes)
//	16      1     Version      Client protocol version
//	17      2     Code         Request opcode
//	19      4     PayloadSize  Length of the payload that follows
//
// # Response Header Structure
//
// The response header is exactly 7 bytes:
//
//	Offset  Size  Field        Description
//	------  ----  -----------  ----------------------------------
//	0       1     Version      Server protocol version (always 3)
//	1       2     Code         Response code
//	3       4     PayloadSize  Length of the payload that follows
//
// # Byte Order
//
// All multi-byte integer fields are little-endian.
//
// # Text Fields
//
// Names and file names travel as fixed-width 255-byte blocks. The value is
// UTF-8, terminated by the first zero byte; the remainder of the block is
// padding. A block with no zero byte uses all 255 bytes.
//
// # Parsing Flow
//
//	req, err := protocol.ReadRequest(conn, maxPayload)
//	if err != nil { ... }
//	switch req.Header.Code {
//	case protocol.CodeRegister:
//	    reg, err := protocol.ParseRegister(req.Payload)
//	    ...
//	}
//
// # Encoding Flow
//
//	resp := protocol.MakeRegisterSuccess(clientID)
//	err := protocol.WriteResponse(conn, resp)
//
// # Thread Safety
//
// Parsing and encoding operations are stateless and safe for concurrent
// use. ReadRequest and WriteResponse each perform sequential I/O on the
// given reader or writer; callers serialize access per connection.
package protocol
