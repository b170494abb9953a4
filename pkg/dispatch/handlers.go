package dispatch

import (
	"context"
	"log/slog"

	"github.com/marmos91/cipherdrop/internal/checksum"
	"github.com/marmos91/cipherdrop/internal/keys"
	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/pkg/protocol"
	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// handleRegister creates a new client under the requested name and returns
// its freshly generated id. The header id is ignored: a registering client
// does not have one yet.
func handleRegister(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	reg, err := protocol.ParseRegister(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	client, err := d.registry.Register(ctx, reg.Name)
	if err != nil {
		logger.WarnCtx(ctx, "Registration refused",
			slog.String(logger.KeyClientName, reg.Name), logger.Err(err))
		return protocol.MakeRegisterFailure()
	}

	id, err := keys.ParseID(client.ID)
	if err != nil {
		return protocol.MakeRegisterFailure()
	}

	logger.InfoCtx(ctx, "Client registered",
		logger.ClientID(client.ID), slog.String(logger.KeyClientName, client.Name))
	return protocol.MakeRegisterSuccess(id)
}

// handleSendPublicKey stores the client's RSA public key and answers with a
// fresh AES key wrapped under it.
//
// The public key is persisted before the wrap is attempted, so a client
// whose key turns out to be unusable still has it on record; the session
// key is only persisted once it was successfully wrapped.
func handleSendPublicKey(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	pk, err := protocol.ParsePublicKey(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	id := keys.FormatID(req.Header.ClientID)
	client, err := d.registry.GetNamed(id, pk.Name)
	if err != nil {
		logger.WarnCtx(ctx, "Public key from unknown client",
			logger.ClientID(id), slog.String(logger.KeyClientName, pk.Name))
		return protocol.MakeRegisterFailure()
	}

	d.touch(ctx, client.ID)

	if err := d.registry.SetPublicKey(ctx, client.ID, pk.Key); err != nil {
		logger.ErrorCtx(ctx, "Public key write failed", logger.ClientID(client.ID), logger.Err(err))
		return protocol.MakeRegisterFailure()
	}

	sessionKey, err := keys.NewSessionKey()
	if err != nil {
		logger.ErrorCtx(ctx, "Session key generation failed", logger.Err(err))
		return protocol.MakeRegisterFailure()
	}

	wrapped, err := keys.Wrap(pk.Key, sessionKey)
	if err != nil {
		logger.WarnCtx(ctx, "Key wrap failed", logger.ClientID(client.ID), logger.Err(err))
		return protocol.MakeRegisterFailure()
	}

	if err := d.registry.SetSessionKey(ctx, client.ID, sessionKey); err != nil {
		logger.ErrorCtx(ctx, "Session key write failed", logger.ClientID(client.ID), logger.Err(err))
		return protocol.MakeRegisterFailure()
	}

	logger.InfoCtx(ctx, "Session key issued", logger.ClientID(client.ID))
	return protocol.MakeSessionKey(req.Header.ClientID, wrapped)
}

// handleReconnect re-keys a returning client: a fresh AES key is generated,
// persisted, and wrapped under the public key stored at registration time.
//
// Unlike send-public-key, the fresh key is persisted before the wrap. A
// wrap failure therefore leaves the client with a rotated key it never
// received; the client recovers by reconnecting again.
func handleReconnect(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	rec, err := protocol.ParseReconnect(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	id := keys.FormatID(req.Header.ClientID)
	client, err := d.registry.GetNamed(id, rec.Name)
	if err == nil && !client.HasPublicKey() {
		err = models.ErrNoPublicKey
	}
	if err != nil {
		logger.WarnCtx(ctx, "Reconnect denied",
			logger.ClientID(id), slog.String(logger.KeyClientName, rec.Name), logger.Err(err))
		return protocol.MakeReconnectDenied(req.Header.ClientID)
	}

	d.touch(ctx, client.ID)

	sessionKey, err := keys.NewSessionKey()
	if err != nil {
		logger.ErrorCtx(ctx, "Session key generation failed", logger.Err(err))
		return protocol.MakeReconnectDenied(req.Header.ClientID)
	}

	if err := d.registry.SetSessionKey(ctx, client.ID, sessionKey); err != nil {
		logger.ErrorCtx(ctx, "Session key write failed", logger.ClientID(client.ID), logger.Err(err))
		return protocol.MakeReconnectDenied(req.Header.ClientID)
	}

	wrapped, err := keys.Wrap(client.PublicKey, sessionKey)
	if err != nil {
		logger.WarnCtx(ctx, "Key wrap failed on reconnect", logger.ClientID(client.ID), logger.Err(err))
		return protocol.MakeReconnectDenied(req.Header.ClientID)
	}

	logger.InfoCtx(ctx, "Client reconnected", logger.ClientID(client.ID))
	return protocol.MakeReconnectApproved(req.Header.ClientID, wrapped)
}

// handleSendFile appends one ciphertext fragment to the canonical path for
// (client, file). The first packet truncates whatever an aborted upload
// left behind; the last packet decrypts the assembled file, records it and
// answers 1603 with the checksum. Intermediate fragments get no response.
func handleSendFile(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	chunk, err := protocol.ParseFileChunk(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	id := keys.FormatID(req.Header.ClientID)
	d.touch(ctx, id)

	if chunk.ContentSize == 0 {
		logger.WarnCtx(ctx, "Upload with zero content size", logger.File(chunk.FileName))
		d.recordFileRejected()
		return protocol.MakeFailure()
	}

	path, err := d.files.WriteFragment(id, chunk.FileName, chunk.Data, chunk.Packet == 1)
	if err != nil {
		logger.ErrorCtx(ctx, "Fragment write failed",
			logger.File(chunk.FileName), logger.Err(err))
		d.recordFileRejected()
		return protocol.MakeFailure()
	}

	logger.DebugCtx(ctx, "Fragment stored",
		logger.File(chunk.FileName),
		logger.KeyPacket, chunk.Packet,
		logger.KeyTotalPackets, chunk.TotalPackets,
		logger.Bytes(len(chunk.Data)))

	if !chunk.IsLast() {
		return nil
	}

	client, err := d.registry.Get(id)
	if err != nil || !client.HasSessionKey() {
		logger.WarnCtx(ctx, "Upload finished without a session key",
			logger.ClientID(id), logger.File(chunk.FileName))
		d.recordFileRejected()
		return protocol.MakeFailure()
	}

	plaintext, err := d.files.DecryptInPlace(path, client.SessionKey)
	if err != nil {
		logger.WarnCtx(ctx, "Decryption failed",
			logger.ClientID(id), logger.File(chunk.FileName), logger.Err(err))
		d.recordFileRejected()
		return protocol.MakeFailure()
	}

	if err := d.registry.RecordFile(ctx, id, chunk.FileName, path); err != nil {
		logger.ErrorCtx(ctx, "File row write failed",
			logger.File(chunk.FileName), logger.Path(path), logger.Err(err))
		d.recordFileRejected()
		return protocol.MakeFailure()
	}

	crc := checksum.Sum(plaintext)
	d.recordFileAccepted()
	logger.InfoCtx(ctx, "File accepted",
		logger.ClientID(id),
		logger.File(chunk.FileName),
		logger.Path(path),
		logger.Bytes(len(plaintext)),
		logger.KeyCRC, crc)
	return protocol.MakeFileAccepted(req.Header.ClientID, chunk.ContentSize, chunk.FileName, crc)
}

// handleCRCOk marks the named file as verified. The confirm is sent whether
// or not a matching row exists: verification is an update, not a lookup,
// and the client only needs to know the verdict was received.
func handleCRCOk(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	ack, err := protocol.ParseFileAck(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	id := keys.FormatID(req.Header.ClientID)
	d.touch(ctx, id)

	path := d.files.PathFor(id, ack.FileName)
	if err := d.registry.MarkVerified(ctx, path); err != nil {
		logger.DebugCtx(ctx, "Verify skipped", logger.File(ack.FileName), logger.Err(err))
	} else {
		d.recordFileVerified()
		logger.InfoCtx(ctx, "File verified",
			logger.ClientID(id), logger.File(ack.FileName), logger.Path(path))
	}

	return protocol.MakeConfirm(req.Header.ClientID)
}

// handleCRCRetry acknowledges a checksum mismatch. The client retries with
// a fresh send-file sequence; the server stays silent and keeps the
// unverified bytes for the first packet of that retry to truncate.
func handleCRCRetry(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	ack, err := protocol.ParseFileAck(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	id := keys.FormatID(req.Header.ClientID)
	d.touch(ctx, id)

	logger.InfoCtx(ctx, "Checksum mismatch reported",
		logger.ClientID(id), logger.File(ack.FileName))
	return nil
}

// handleCRCAbort ends a transfer after repeated checksum failures. The file
// row, if one was recorded, keeps whatever verified state it had.
func handleCRCAbort(ctx context.Context, d *Dispatcher, req *protocol.Request) *protocol.Response {
	ack, err := protocol.ParseFileAck(req.Payload)
	if err != nil {
		return protocol.MakeFailure()
	}

	id := keys.FormatID(req.Header.ClientID)
	d.touch(ctx, id)

	logger.WarnCtx(ctx, "Transfer aborted by client",
		logger.ClientID(id), logger.File(ack.FileName))
	return protocol.MakeConfirm(req.Header.ClientID)
}
