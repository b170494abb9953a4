//go:build e2e

package e2e

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/marmos91/cipherdrop/internal/keys"
	"github.com/marmos91/cipherdrop/pkg/protocol"
	"github.com/stretchr/testify/require"
)

// response is a decoded server response.
type response struct {
	version uint8
	code    uint16
	payload []byte
}

// client plays the client side of the transfer protocol over one TCP
// connection. The id field travels in every request header; it is zero
// until register adopts the server-assigned identifier.
type client struct {
	conn net.Conn
	id   [protocol.ClientIDSize]byte
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err, "dial transfer server")
	t.Cleanup(func() { _ = conn.Close() })
	return &client{conn: conn}
}

// sendHeader writes a request header declaring payloadSize bytes. Split from
// send so the oversize test can declare a payload it never delivers.
func (c *client) sendHeader(t *testing.T, code uint16, payloadSize uint32) {
	t.Helper()
	hdr := protocol.RequestHeader{
		ClientID:    c.id,
		Version:     protocol.Version,
		Code:        code,
		PayloadSize: payloadSize,
	}
	_, err := c.conn.Write(hdr.Encode())
	require.NoError(t, err, "write request header")
}

func (c *client) send(t *testing.T, code uint16, payload []byte) {
	t.Helper()
	c.sendHeader(t, code, uint32(len(payload)))
	if len(payload) > 0 {
		_, err := c.conn.Write(payload)
		require.NoError(t, err, "write request payload")
	}
}

func (c *client) recv(t *testing.T) response {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	hdr := make([]byte, protocol.ResponseHeaderSize)
	_, err := io.ReadFull(c.conn, hdr)
	require.NoError(t, err, "read response header")

	resp := response{
		version: hdr[0],
		code:    binary.LittleEndian.Uint16(hdr[1:3]),
	}
	if size := binary.LittleEndian.Uint32(hdr[3:7]); size > 0 {
		resp.payload = make([]byte, size)
		_, err = io.ReadFull(c.conn, resp.payload)
		require.NoError(t, err, "read response payload")
	}
	return resp
}

// expectSilence asserts the server sends nothing within a short window.
// Used for the opcodes that produce no response.
func (c *client) expectSilence(t *testing.T) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err := c.conn.Read(make([]byte, 1))
	var netErr net.Error
	require.ErrorAs(t, err, &netErr, "expected no response bytes")
	require.True(t, netErr.Timeout(), "expected no response bytes, read returned %v", err)
	require.NoError(t, c.conn.SetReadDeadline(time.Time{}))
}

// expectClosed asserts the server closed its end of the connection.
func (c *client) expectClosed(t *testing.T) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c.conn.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF, "expected the server to close the connection")
}

// register asks for a new identity and adopts the returned id on success.
func (c *client) register(t *testing.T, name string) response {
	t.Helper()
	c.send(t, protocol.CodeRegister, nameField(name))
	resp := c.recv(t)
	if resp.code == protocol.CodeRegisterSuccess {
		require.Len(t, resp.payload, protocol.ClientIDSize)
		copy(c.id[:], resp.payload)
	}
	return resp
}

// keyExchange delivers the public key and returns the unwrapped session key.
func (c *client) keyExchange(t *testing.T, name string, priv *rsa.PrivateKey, publicKeyDER []byte) []byte {
	t.Helper()
	c.send(t, protocol.CodeSendPublicKey, publicKeyPayload(name, publicKeyDER))
	resp := c.recv(t)
	require.Equal(t, protocol.CodeSessionKey, resp.code)
	require.Greater(t, len(resp.payload), protocol.ClientIDSize)
	require.Equal(t, c.id[:], resp.payload[:protocol.ClientIDSize])
	return c.unwrap(t, priv, resp.payload[protocol.ClientIDSize:])
}

// unwrap opens a wrapped session key with the client's private key.
func (c *client) unwrap(t *testing.T, priv *rsa.PrivateKey, wrapped []byte) []byte {
	t.Helper()
	key, err := rsa.DecryptOAEP(sha1.New(), nil, priv, wrapped, nil)
	require.NoError(t, err, "session key should unwrap with the client key")
	require.Len(t, key, keys.KeySize)
	return key
}

// reconnect resumes the registration under name.
func (c *client) reconnect(t *testing.T, name string) response {
	t.Helper()
	c.send(t, protocol.CodeReconnect, nameField(name))
	return c.recv(t)
}

// upload encrypts plaintext under sessionKey, splits the ciphertext into
// fragments and sends them in order. Returns the response to the final
// fragment; intermediate fragments produce none.
func (c *client) upload(t *testing.T, fileName string, plaintext, sessionKey []byte, fragments int) response {
	t.Helper()

	ciphertext, err := keys.Encrypt(plaintext, sessionKey)
	require.NoError(t, err)

	contentSize := uint32(len(ciphertext))
	fileSize := uint32(len(plaintext))

	for i := 0; i < fragments; i++ {
		lo := len(ciphertext) * i / fragments
		hi := len(ciphertext) * (i + 1) / fragments
		c.send(t, protocol.CodeSendFile,
			chunkPayload(contentSize, fileSize, uint16(i+1), uint16(fragments), fileName, ciphertext[lo:hi]))
	}
	return c.recv(t)
}

// fileAck sends a CRC verdict for fileName. The caller reads the response,
// if the verdict has one.
func (c *client) fileAck(t *testing.T, code uint16, fileName string) {
	t.Helper()
	c.send(t, code, nameField(fileName))
}

// nameField renders a name as the fixed-width zero-padded field the wire
// format uses.
func nameField(name string) []byte {
	f := make([]byte, protocol.NameSize)
	copy(f, name)
	return f
}

func publicKeyPayload(name string, publicKeyDER []byte) []byte {
	p := make([]byte, protocol.NameSize+protocol.PublicKeySize)
	copy(p, name)
	copy(p[protocol.NameSize:], publicKeyDER)
	return p
}

func chunkPayload(contentSize, fileSize uint32, packet, total uint16, fileName string, data []byte) []byte {
	p := make([]byte, protocol.FileChunkHeaderSize+len(data))
	binary.LittleEndian.PutUint32(p[0:4], contentSize)
	binary.LittleEndian.PutUint32(p[4:8], fileSize)
	binary.LittleEndian.PutUint16(p[8:10], packet)
	binary.LittleEndian.PutUint16(p[10:12], total)
	copy(p[12:12+protocol.NameSize], fileName)
	copy(p[protocol.FileChunkHeaderSize:], data)
	return p
}

// accepted is an unpacked CodeFileAccepted payload.
type accepted struct {
	clientID    []byte
	contentSize uint32
	fileName    string
	crc         uint32
}

func parseAccepted(t *testing.T, payload []byte) accepted {
	t.Helper()
	require.Len(t, payload, protocol.ClientIDSize+4+protocol.NameSize+4)
	return accepted{
		clientID:    payload[:protocol.ClientIDSize],
		contentSize: binary.LittleEndian.Uint32(payload[16:20]),
		fileName:    trimName(payload[20 : 20+protocol.NameSize]),
		crc:         binary.LittleEndian.Uint32(payload[20+protocol.NameSize:]),
	}
}

func trimName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
