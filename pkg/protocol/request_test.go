package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// =============================================================================
// Test Helper Functions
// =============================================================================

// buildRequest assembles a raw wire request for the given header fields.
func buildRequest(clientID [ClientIDSize]byte, version uint8, code uint16, payload []byte) []byte {
	buf := make([]byte, RequestHeaderSize+len(payload))
	copy(buf[0:16], clientID[:])
	buf[16] = version
	binary.LittleEndian.PutUint16(buf[17:19], code)
	binary.LittleEndian.PutUint32(buf[19:23], uint32(len(payload)))
	copy(buf[RequestHeaderSize:], payload)
	return buf
}

// nameField builds a 255-byte fixed-width text block.
func nameField(s string) []byte {
	b := make([]byte, NameSize)
	copy(b, s)
	return b
}

func testClientID() [ClientIDSize]byte {
	var id [ClientIDSize]byte
	for i := range id {
		id[i] = byte(i + 1)
	}
	return id
}

// =============================================================================
// ReadRequest Tests
// =============================================================================

func TestRequestHeader_RoundTrip(t *testing.T) {
	headers := []RequestHeader{
		{ClientID: testClientID(), Version: Version, Code: CodeRegister, PayloadSize: NameSize},
		{Version: 1, Code: CodeSendFile, PayloadSize: 0xDEADBEEF},
		{ClientID: [ClientIDSize]byte{0: 0xFF, 15: 0x01}, Code: CodeCRCAbort},
	}

	for _, h := range headers {
		raw := h.Encode()
		if len(raw) != RequestHeaderSize {
			t.Fatalf("Encode() produced %d bytes, want %d", len(raw), RequestHeaderSize)
		}
		if got := parseRequestHeader(raw); got != h {
			t.Errorf("round-trip = %+v, want %+v", got, h)
		}
	}

	// And through the reader, header plus payload in one frame.
	h := RequestHeader{ClientID: testClientID(), Version: Version, Code: CodeCRCOk, PayloadSize: NameSize}
	frame := append(h.Encode(), nameField("report.pdf")...)

	req, err := ReadRequest(bytes.NewReader(frame), 1<<20)
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.Header != h {
		t.Errorf("header = %+v, want %+v", req.Header, h)
	}
	if !bytes.Equal(req.Payload, nameField("report.pdf")) {
		t.Error("payload did not survive the round trip")
	}
}

func TestReadRequest(t *testing.T) {
	t.Run("ParsesHeaderAndPayload", func(t *testing.T) {
		id := testClientID()
		payload := nameField("alice")
		raw := buildRequest(id, 3, CodeRegister, payload)

		req, err := ReadRequest(bytes.NewReader(raw), 1<<20)
		if err != nil {
			t.Fatalf("ReadRequest failed: %v", err)
		}
		if req.Header.ClientID != id {
			t.Errorf("ClientID = %x, want %x", req.Header.ClientID, id)
		}
		if req.Header.Version != 3 {
			t.Errorf("Version = %d, want 3", req.Header.Version)
		}
		if req.Header.Code != CodeRegister {
			t.Errorf("Code = %d, want %d", req.Header.Code, CodeRegister)
		}
		if req.Header.PayloadSize != uint32(len(payload)) {
			t.Errorf("PayloadSize = %d, want %d", req.Header.PayloadSize, len(payload))
		}
		if !bytes.Equal(req.Payload, payload) {
			t.Error("Payload does not match written bytes")
		}
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		raw := buildRequest(testClientID(), 3, CodeCRCOk, nil)

		req, err := ReadRequest(bytes.NewReader(raw), 1<<20)
		if err != nil {
			t.Fatalf("ReadRequest failed: %v", err)
		}
		if len(req.Payload) != 0 {
			t.Errorf("Payload length = %d, want 0", len(req.Payload))
		}
	})

	t.Run("OversizedPayloadReturnsHeader", func(t *testing.T) {
		raw := buildRequest(testClientID(), 3, CodeSendFile, nil)
		binary.LittleEndian.PutUint32(raw[19:23], 1<<24)

		req, err := ReadRequest(bytes.NewReader(raw), 1<<20)
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Fatalf("error = %v, want ErrPayloadTooLarge", err)
		}
		if req == nil {
			t.Fatal("expected header to be returned for oversized payload")
		}
		if req.Header.Code != CodeSendFile {
			t.Errorf("Code = %d, want %d", req.Header.Code, CodeSendFile)
		}
		if req.Payload != nil {
			t.Error("payload must not be read when oversized")
		}
	})

	t.Run("TruncatedHeader", func(t *testing.T) {
		_, err := ReadRequest(bytes.NewReader([]byte{1, 2, 3}), 1<<20)
		if err == nil {
			t.Fatal("expected error for truncated header")
		}
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		raw := buildRequest(testClientID(), 3, CodeRegister, nameField("bob"))
		_, err := ReadRequest(bytes.NewReader(raw[:RequestHeaderSize+10]), 1<<20)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("error = %v, want io.ErrUnexpectedEOF", err)
		}
	})

	t.Run("EOFOnIdleConnection", func(t *testing.T) {
		_, err := ReadRequest(bytes.NewReader(nil), 1<<20)
		if !errors.Is(err, io.EOF) {
			t.Fatalf("error = %v, want io.EOF", err)
		}
	})
}

// =============================================================================
// Payload Parser Tests
// =============================================================================

func TestParseRegister(t *testing.T) {
	t.Run("TruncatesAtZeroByte", func(t *testing.T) {
		reg, err := ParseRegister(nameField("alice"))
		if err != nil {
			t.Fatalf("ParseRegister failed: %v", err)
		}
		if reg.Name != "alice" {
			t.Errorf("Name = %q, want %q", reg.Name, "alice")
		}
	})

	t.Run("FullWidthName", func(t *testing.T) {
		long := bytes.Repeat([]byte{'x'}, NameSize)
		reg, err := ParseRegister(long)
		if err != nil {
			t.Fatalf("ParseRegister failed: %v", err)
		}
		if len(reg.Name) != NameSize {
			t.Errorf("Name length = %d, want %d", len(reg.Name), NameSize)
		}
	})

	t.Run("ShortPayload", func(t *testing.T) {
		_, err := ParseRegister(make([]byte, NameSize-1))
		if !errors.Is(err, ErrShortPayload) {
			t.Fatalf("error = %v, want ErrShortPayload", err)
		}
	})
}

func TestParsePublicKey(t *testing.T) {
	t.Run("SplitsNameAndKey", func(t *testing.T) {
		payload := make([]byte, NameSize+PublicKeySize)
		copy(payload, "carol")
		for i := range PublicKeySize {
			payload[NameSize+i] = byte(i)
		}

		pk, err := ParsePublicKey(payload)
		if err != nil {
			t.Fatalf("ParsePublicKey failed: %v", err)
		}
		if pk.Name != "carol" {
			t.Errorf("Name = %q, want %q", pk.Name, "carol")
		}
		if len(pk.Key) != PublicKeySize {
			t.Fatalf("Key length = %d, want %d", len(pk.Key), PublicKeySize)
		}
		if pk.Key[0] != 0 || pk.Key[159] != 159 {
			t.Error("Key bytes not extracted at expected offsets")
		}
	})

	t.Run("KeyIsACopy", func(t *testing.T) {
		payload := make([]byte, NameSize+PublicKeySize)
		pk, err := ParsePublicKey(payload)
		if err != nil {
			t.Fatalf("ParsePublicKey failed: %v", err)
		}
		payload[NameSize] = 0xFF
		if pk.Key[0] == 0xFF {
			t.Error("Key aliases the request payload")
		}
	})

	t.Run("ShortPayload", func(t *testing.T) {
		_, err := ParsePublicKey(make([]byte, NameSize))
		if !errors.Is(err, ErrShortPayload) {
			t.Fatalf("error = %v, want ErrShortPayload", err)
		}
	})
}

func TestParseFileChunk(t *testing.T) {
	buildChunk := func(contentSize, fileSize uint32, packet, total uint16, name string, data []byte) []byte {
		p := make([]byte, FileChunkHeaderSize+len(data))
		binary.LittleEndian.PutUint32(p[0:4], contentSize)
		binary.LittleEndian.PutUint32(p[4:8], fileSize)
		binary.LittleEndian.PutUint16(p[8:10], packet)
		binary.LittleEndian.PutUint16(p[10:12], total)
		copy(p[12:12+NameSize], name)
		copy(p[FileChunkHeaderSize:], data)
		return p
	}

	t.Run("ParsesAllFields", func(t *testing.T) {
		data := []byte("ciphertext-bytes")
		p := buildChunk(4096, 4000, 2, 5, "report.pdf", data)

		chunk, err := ParseFileChunk(p)
		if err != nil {
			t.Fatalf("ParseFileChunk failed: %v", err)
		}
		if chunk.ContentSize != 4096 {
			t.Errorf("ContentSize = %d, want 4096", chunk.ContentSize)
		}
		if chunk.FileSize != 4000 {
			t.Errorf("FileSize = %d, want 4000", chunk.FileSize)
		}
		if chunk.Packet != 2 || chunk.TotalPackets != 5 {
			t.Errorf("Packet = %d/%d, want 2/5", chunk.Packet, chunk.TotalPackets)
		}
		if chunk.FileName != "report.pdf" {
			t.Errorf("FileName = %q, want %q", chunk.FileName, "report.pdf")
		}
		if !bytes.Equal(chunk.Data, data) {
			t.Error("Data does not match fragment bytes")
		}
	})

	t.Run("EmptyFragmentData", func(t *testing.T) {
		p := buildChunk(0, 0, 1, 1, "empty.bin", nil)
		chunk, err := ParseFileChunk(p)
		if err != nil {
			t.Fatalf("ParseFileChunk failed: %v", err)
		}
		if len(chunk.Data) != 0 {
			t.Errorf("Data length = %d, want 0", len(chunk.Data))
		}
	})

	t.Run("IsLast", func(t *testing.T) {
		tests := []struct {
			packet, total uint16
			want          bool
		}{
			{1, 1, true},
			{1, 3, false},
			{3, 3, true},
			{4, 3, true},
		}
		for _, tt := range tests {
			c := FileChunk{Packet: tt.packet, TotalPackets: tt.total}
			if got := c.IsLast(); got != tt.want {
				t.Errorf("IsLast(%d/%d) = %v, want %v", tt.packet, tt.total, got, tt.want)
			}
		}
	})

	t.Run("ShortPayload", func(t *testing.T) {
		_, err := ParseFileChunk(make([]byte, FileChunkHeaderSize-1))
		if !errors.Is(err, ErrShortPayload) {
			t.Fatalf("error = %v, want ErrShortPayload", err)
		}
	})
}

func TestParseFileAck(t *testing.T) {
	ack, err := ParseFileAck(nameField("done.txt"))
	if err != nil {
		t.Fatalf("ParseFileAck failed: %v", err)
	}
	if ack.FileName != "done.txt" {
		t.Errorf("FileName = %q, want %q", ack.FileName, "done.txt")
	}

	if _, err := ParseFileAck(nil); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("error = %v, want ErrShortPayload", err)
	}
}

func TestRequestName(t *testing.T) {
	if got := RequestName(CodeSendFile); got != "send-file" {
		t.Errorf("RequestName(828) = %q, want %q", got, "send-file")
	}
	if got := RequestName(42); got != "unknown(42)" {
		t.Errorf("RequestName(42) = %q, want %q", got, "unknown(42)")
	}
}
