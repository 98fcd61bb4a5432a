package core

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// DataType tags the shape of a transaction's payload.
type DataType byte

const (
	DataUnknown            DataType = 0
	DataClassicTransaction DataType = 1
)

// headerSize is the fixed, big-endian transaction header layout:
// payload size (2B) | timestamp (4B) | fee rate (2B) | emitter (64B) | data type (1B).
const headerSize = 2 + 4 + 2 + loginFieldWidth + 1

// signatureSize is the width of an RSA-2048 signature, big-endian.
const signatureSize = KeypairBitSize / 8

// Header is the fixed-layout prefix shared by every transaction.
type Header struct {
	PayloadSize uint16
	Timestamp   uint32
	FeeRate     uint16
	Emitter     string
	Type        DataType
}

func (h Header) encode() ([]byte, error) {
	emitter, err := encodeLogin(h.Emitter)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint16(buf[0:2], h.PayloadSize)
	binary.BigEndian.PutUint32(buf[2:6], h.Timestamp)
	binary.BigEndian.PutUint16(buf[6:8], h.FeeRate)
	copy(buf[8:8+loginFieldWidth], emitter)
	buf[8+loginFieldWidth] = byte(h.Type)
	return buf, nil
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("%w: truncated transaction header", ErrInvalidHeader)
	}
	return Header{
		PayloadSize: binary.BigEndian.Uint16(buf[0:2]),
		Timestamp:   binary.BigEndian.Uint32(buf[2:6]),
		FeeRate:     binary.BigEndian.Uint16(buf[6:8]),
		Emitter:     decodeLogin(buf[8 : 8+loginFieldWidth]),
		Type:        DataType(buf[8+loginFieldWidth]),
	}, nil
}

// TransactionData is the tagged-union payload a transaction carries.
type TransactionData interface {
	dataType() DataType
	encode() ([]byte, error)
}

// UnknownData is opaque payload bytes for tags this node doesn't interpret.
type UnknownData struct {
	Bytes []byte
}

func (UnknownData) dataType() DataType { return DataUnknown }
func (d UnknownData) encode() ([]byte, error) {
	return append([]byte(nil), d.Bytes...), nil
}

// ClassicTransactionData is the standard transfer payload: receiver, amount,
// and an optional description. Amount is little-endian on the wire, a
// preserved historical quirk of the original header codec.
type ClassicTransactionData struct {
	Receiver       string
	Amount         uint32
	HasDescription bool
	Description    string
}

func (ClassicTransactionData) dataType() DataType { return DataClassicTransaction }

func (d ClassicTransactionData) encode() ([]byte, error) {
	if d.HasDescription && len(d.Description) > maxDescription {
		return nil, fmt.Errorf("%w: description exceeds %d bytes", ErrInvalidPayload, maxDescription)
	}
	receiver, err := encodeLogin(d.Receiver)
	if err != nil {
		return nil, err
	}
	size := loginFieldWidth + 4 + 1
	if d.HasDescription {
		size += len(d.Description)
	}
	buf := make([]byte, size)
	copy(buf[0:loginFieldWidth], receiver)
	binary.LittleEndian.PutUint32(buf[loginFieldWidth:loginFieldWidth+4], d.Amount)
	if d.HasDescription {
		buf[loginFieldWidth+4] = 1
		copy(buf[loginFieldWidth+5:], d.Description)
	}
	return buf, nil
}

func decodeClassicTransactionData(buf []byte) (ClassicTransactionData, error) {
	const fixed = loginFieldWidth + 4 + 1
	if len(buf) < fixed {
		return ClassicTransactionData{}, fmt.Errorf("%w: truncated classic transaction payload", ErrInvalidPayload)
	}
	d := ClassicTransactionData{
		Receiver: decodeLogin(buf[0:loginFieldWidth]),
		Amount:   binary.LittleEndian.Uint32(buf[loginFieldWidth : loginFieldWidth+4]),
	}
	d.HasDescription = buf[loginFieldWidth+4] != 0
	if d.HasDescription {
		d.Description = string(buf[fixed:])
	} else if len(buf) != fixed {
		return ClassicTransactionData{}, fmt.Errorf("%w: description bytes present without has_description flag", ErrInvalidPayload)
	}
	return d, nil
}

// Transaction is a header, a typed payload, and an RSA-2048 signature over
// header‖payload.
type Transaction struct {
	Header    Header
	Data      TransactionData
	Signature [signatureSize]byte
}

// Hash is a double-SHA-256 digest, used for block and chain linkage.
type Hash [32]byte

// NewTransaction builds, signs and returns a transaction. The current wall
// clock second is recorded in the header.
func NewTransaction(emitter string, data TransactionData, feeRate uint16, signer *rsa.PrivateKey) (*Transaction, error) {
	if err := ValidateLogin(emitter); err != nil {
		return nil, err
	}
	payload, err := data.encode()
	if err != nil {
		return nil, err
	}
	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("%w: payload too large", ErrInvalidPayload)
	}
	header := Header{
		PayloadSize: uint16(len(payload)),
		Timestamp:   uint32(time.Now().Unix()),
		FeeRate:     feeRate,
		Emitter:     emitter,
		Type:        data.dataType(),
	}
	headerBytes, err := header.encode()
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(append(headerBytes, payload...))
	sig, err := rsa.SignPKCS1v15(rand.Reader, signer, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("core: signing failed: %w", err)
	}
	tx := &Transaction{Header: header, Data: data}
	if len(sig) != signatureSize {
		return nil, fmt.Errorf("core: unexpected signature size %d", len(sig))
	}
	copy(tx.Signature[:], sig)
	return tx, nil
}

// Verify checks the transaction's signature against pub.
func (t *Transaction) Verify(pub *rsa.PublicKey) bool {
	headerBytes, err := t.Header.encode()
	if err != nil {
		return false
	}
	payload, err := t.Data.encode()
	if err != nil {
		return false
	}
	digest := sha256.Sum256(append(headerBytes, payload...))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], t.Signature[:]) == nil
}

// Serialize renders the transaction as header‖payload‖signature.
func (t *Transaction) Serialize() ([]byte, error) {
	headerBytes, err := t.Header.encode()
	if err != nil {
		return nil, err
	}
	payload, err := t.Data.encode()
	if err != nil {
		return nil, err
	}
	if int(t.Header.PayloadSize) != len(payload) {
		return nil, fmt.Errorf("%w: header payload size disagrees with encoded payload", ErrInvalidPayload)
	}
	out := make([]byte, 0, headerSize+len(payload)+signatureSize)
	out = append(out, headerBytes...)
	out = append(out, payload...)
	out = append(out, t.Signature[:]...)
	return out, nil
}

// ParseTransaction decodes one transaction from the front of buf and returns
// the number of bytes consumed.
func ParseTransaction(buf []byte) (*Transaction, int, error) {
	header, err := decodeHeader(buf)
	if err != nil {
		return nil, 0, err
	}
	need := headerSize + int(header.PayloadSize) + signatureSize
	if len(buf) < need {
		return nil, 0, fmt.Errorf("%w: truncated transaction body", ErrInvalidPayload)
	}
	payload := buf[headerSize : headerSize+int(header.PayloadSize)]
	var data TransactionData
	switch header.Type {
	case DataClassicTransaction:
		data, err = decodeClassicTransactionData(payload)
		if err != nil {
			return nil, 0, err
		}
	case DataUnknown:
		data = UnknownData{Bytes: append([]byte(nil), payload...)}
	default:
		return nil, 0, fmt.Errorf("%w: unknown data type %d", ErrInvalidPayload, header.Type)
	}
	tx := &Transaction{Header: header, Data: data}
	copy(tx.Signature[:], buf[headerSize+int(header.PayloadSize):need])
	return tx, need, nil
}

// EncodePayload renders data's wire bytes, for callers outside core that
// need to size a header before constructing a Transaction (e.g. decoding a
// JSON transaction body).
func EncodePayload(data TransactionData) ([]byte, error) {
	return data.encode()
}

// Size returns the serialized length of the transaction without encoding it.
func (t *Transaction) Size() (int, error) {
	payload, err := t.Data.encode()
	if err != nil {
		return 0, err
	}
	return headerSize + len(payload) + signatureSize, nil
}
