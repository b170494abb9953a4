//go:build e2e

package e2e

import (
	"crypto/aes"
	"fmt"
	"os"
	"testing"

	"github.com/marmos91/cipherdrop/internal/checksum"
	"github.com/marmos91/cipherdrop/internal/keys"
	"github.com/marmos91/cipherdrop/internal/keys/keystest"
	"github.com/marmos91/cipherdrop/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransferFlow walks one client through the whole protocol: register,
// duplicate-name refusal, key exchange, fragmented upload, checksum retry,
// verification and reconnect.
func TestTransferFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping transfer flow test in short mode")
	}

	env := startServer(t)
	priv, publicKeyDER := keystest.ClientKey(t)

	alice := dial(t, env.addr)

	// Register: a zeroed id and a fresh name yield a random identifier.
	resp := alice.register(t, "alice")
	require.Equal(t, protocol.CodeRegisterSuccess, resp.code)
	require.Equal(t, protocol.Version, resp.version)
	require.NotEqual(t, make([]byte, protocol.ClientIDSize), resp.payload,
		"assigned id should not be zero")

	// The same name registered again is refused, whoever asks.
	intruder := dial(t, env.addr)
	resp = intruder.register(t, "alice")
	require.Equal(t, protocol.CodeRegisterFailure, resp.code)
	assert.Empty(t, resp.payload)

	// Key exchange: the wrapped session key opens with the client's
	// private key.
	sessionKey := alice.keyExchange(t, "alice", priv, publicKeyDER)

	// Upload in three fragments. The server stays silent until the last
	// one, then reports its checksum of the decrypted file.
	plaintext := testPlaintext(4000)
	resp = alice.upload(t, "report.bin", plaintext, sessionKey, 3)
	require.Equal(t, protocol.CodeFileAccepted, resp.code)

	acc := parseAccepted(t, resp.payload)
	assert.Equal(t, alice.id[:], acc.clientID)
	assert.Equal(t, paddedSize(len(plaintext)), acc.contentSize)
	assert.Equal(t, "report.bin", acc.fileName)
	assert.Equal(t, checksum.Sum(plaintext), acc.crc)

	// The decrypted file sits at the canonical path, recorded but not yet
	// verified.
	path := env.vault.PathFor(keys.FormatID(alice.id), "report.bin")
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, plaintext, stored)

	file, err := env.registry.GetFile(path)
	require.NoError(t, err)
	assert.False(t, file.Verified, "file must not be verified before crc-ok")

	// A checksum mismatch produces no response and changes nothing.
	alice.fileAck(t, protocol.CodeCRCRetry, "report.bin")
	alice.expectSilence(t)

	file, err = env.registry.GetFile(path)
	require.NoError(t, err)
	assert.False(t, file.Verified, "crc-retry must not verify the file")

	// The retry re-sends the file; the first packet of the new attempt
	// truncates the previous bytes.
	resp = alice.upload(t, "report.bin", plaintext, sessionKey, 2)
	require.Equal(t, protocol.CodeFileAccepted, resp.code)
	assert.Equal(t, checksum.Sum(plaintext), parseAccepted(t, resp.payload).crc)

	// crc-ok verifies the file and is confirmed.
	alice.fileAck(t, protocol.CodeCRCOk, "report.bin")
	resp = alice.recv(t)
	require.Equal(t, protocol.CodeConfirm, resp.code)
	assert.Equal(t, alice.id[:], resp.payload)

	file, err = env.registry.GetFile(path)
	require.NoError(t, err)
	assert.True(t, file.Verified)

	// Reconnect under the wrong name is denied, echoing the header id.
	resp = alice.reconnect(t, "mallory")
	require.Equal(t, protocol.CodeReconnectDenied, resp.code)
	assert.Equal(t, alice.id[:], resp.payload)

	// Reconnect under the right name rotates the session key.
	resp = alice.reconnect(t, "alice")
	require.Equal(t, protocol.CodeReconnectApproved, resp.code)
	require.Equal(t, alice.id[:], resp.payload[:protocol.ClientIDSize])
	rotated := alice.unwrap(t, priv, resp.payload[protocol.ClientIDSize:])
	assert.NotEqual(t, sessionKey, rotated, "reconnect must issue a fresh key")
}

// TestUploadResumesOnNewConnection drops the connection between the key
// exchange and the upload. The server keeps no per-connection state, so the
// transfer completes on the new socket.
func TestUploadResumesOnNewConnection(t *testing.T) {
	env := startServer(t)
	priv, publicKeyDER := keystest.ClientKey(t)

	first := dial(t, env.addr)
	resp := first.register(t, "roamer")
	require.Equal(t, protocol.CodeRegisterSuccess, resp.code)
	sessionKey := first.keyExchange(t, "roamer", priv, publicKeyDER)
	require.NoError(t, first.conn.Close())

	second := dial(t, env.addr)
	second.id = first.id

	plaintext := testPlaintext(512)
	resp = second.upload(t, "notes.txt", plaintext, sessionKey, 2)
	require.Equal(t, protocol.CodeFileAccepted, resp.code)

	second.fileAck(t, protocol.CodeCRCOk, "notes.txt")
	require.Equal(t, protocol.CodeConfirm, second.recv(t).code)

	file, err := env.registry.GetFile(env.vault.PathFor(keys.FormatID(second.id), "notes.txt"))
	require.NoError(t, err)
	assert.True(t, file.Verified)
}

// TestConcurrentClients uploads from several clients at once and expects
// every file to arrive intact under its owner's directory.
func TestConcurrentClients(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrent clients test in short mode")
	}

	env := startServer(t)
	priv, publicKeyDER := keystest.ClientKey(t)

	for i := range 4 {
		name := fmt.Sprintf("worker-%d", i)
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := dial(t, env.addr)
			resp := c.register(t, name)
			require.Equal(t, protocol.CodeRegisterSuccess, resp.code)
			sessionKey := c.keyExchange(t, name, priv, publicKeyDER)

			plaintext := append(testPlaintext(2048), name...)
			resp = c.upload(t, "payload.bin", plaintext, sessionKey, 3)
			require.Equal(t, protocol.CodeFileAccepted, resp.code)
			require.Equal(t, checksum.Sum(plaintext), parseAccepted(t, resp.payload).crc)

			c.fileAck(t, protocol.CodeCRCOk, "payload.bin")
			require.Equal(t, protocol.CodeConfirm, c.recv(t).code)

			stored, err := os.ReadFile(env.vault.PathFor(keys.FormatID(c.id), "payload.bin"))
			require.NoError(t, err)
			require.Equal(t, plaintext, stored)
		})
	}
}

// TestOversizedPayloadRefused declares a payload above the server limit.
// The stream is no longer framed at that point, so after the failure
// response the server drops the connection.
func TestOversizedPayloadRefused(t *testing.T) {
	env := startServer(t)
	c := dial(t, env.addr)

	c.sendHeader(t, protocol.CodeSendFile, defaultMaxPayload+1)
	resp := c.recv(t)
	require.Equal(t, protocol.CodeGeneralFailure, resp.code)
	assert.Empty(t, resp.payload)
	c.expectClosed(t)
}

// TestUnknownOpcode sends an unmapped code. The payload was consumed, so
// the failure response leaves the connection usable.
func TestUnknownOpcode(t *testing.T) {
	env := startServer(t)
	c := dial(t, env.addr)

	c.send(t, 1234, []byte("junk"))
	resp := c.recv(t)
	require.Equal(t, protocol.CodeGeneralFailure, resp.code)

	resp = c.register(t, "late-arrival")
	require.Equal(t, protocol.CodeRegisterSuccess, resp.code)
}

// testPlaintext returns n bytes of deterministic non-repeating content.
func testPlaintext(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

// paddedSize is the ciphertext size of an n-byte plaintext under PKCS#7.
func paddedSize(n int) uint32 {
	return uint32(n + aes.BlockSize - n%aes.BlockSize)
}
