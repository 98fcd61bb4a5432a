// Package keys wraps the OpenPGP/RSA primitives the node treats as an
// external black box: keypair generation, ASCII-armored export/import, and
// extraction of the raw RSA keys used by core's signature math.
package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/jean-voila/nexium/core"
)

// Keypair bundles an OpenPGP entity with the raw RSA keys core signs and
// verifies with.
type Keypair struct {
	Entity  *openpgp.Entity
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// Generate creates a fresh RSA-2048 OpenPGP identity for login.
func Generate(login string) (*Keypair, error) {
	entity, err := openpgp.NewEntity(login, "nexium node key", "", &packet.Config{
		RSABits: core.KeypairBitSize,
		Time:    time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("keys: generate entity: %w", err)
	}
	pub, priv, err := extractRSA(entity)
	if err != nil {
		return nil, err
	}
	return &Keypair{Entity: entity, Public: pub, Private: priv}, nil
}

func extractRSA(entity *openpgp.Entity) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	if entity.PrimaryKey == nil {
		return nil, nil, fmt.Errorf("keys: entity has no primary key")
	}
	pub, ok := entity.PrimaryKey.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("keys: primary key is not RSA")
	}
	var priv *rsa.PrivateKey
	if entity.PrivateKey != nil {
		if p, ok := entity.PrivateKey.PrivateKey.(*rsa.PrivateKey); ok {
			priv = p
		}
	}
	return pub, priv, nil
}

// ArmorPublicKey renders the entity's public key as an ASCII-armored OpenPGP
// packet, suitable for publishing to the identity provider.
func ArmorPublicKey(entity *openpgp.Entity) (string, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return "", fmt.Errorf("keys: armor encode: %w", err)
	}
	if err := entity.Serialize(w); err != nil {
		w.Close()
		return "", fmt.Errorf("keys: serialize public key: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("keys: close armor writer: %w", err)
	}
	return buf.String(), nil
}

// ParseArmoredPublicKey decodes a single ASCII-armored OpenPGP public key and
// returns its RSA public key. Keys that fail to parse are the caller's
// responsibility to discard (the key cache's refresh path does exactly
// that), so this returns an error rather than panicking on malformed input.
func ParseArmoredPublicKey(armored string) (*rsa.PublicKey, error) {
	block, err := armor.Decode(bytesReader(armored))
	if err != nil {
		return nil, fmt.Errorf("keys: decode armor: %w", err)
	}
	if block.Type != openpgp.PublicKeyType {
		return nil, fmt.Errorf("keys: unexpected armor type %q", block.Type)
	}
	reader := packet.NewReader(block.Body)
	for {
		p, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("keys: read packet: %w", err)
		}
		if pk, ok := p.(*packet.PublicKey); ok {
			if rsaPub, ok := pk.PublicKey.(*rsa.PublicKey); ok {
				return rsaPub, nil
			}
		}
	}
	return nil, fmt.Errorf("keys: no RSA public key packet found")
}

func bytesReader(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}

// RandReader exposes crypto/rand for callers needing fresh randomness
// without importing crypto/rand directly alongside this package.
var RandReader = rand.Reader

// EncryptSplit RSA-OAEP-encrypts plaintext under pub, splitting it into
// chunks that fit the key's OAEP capacity and concatenating the resulting
// ciphertext chunks as base64 — the Go equivalent of the reference client's
// crypt_split helper, used to encrypt the /balance response body.
func EncryptSplit(pub *rsa.PublicKey, plaintext []byte) (string, error) {
	hash := sha256.New()
	chunkSize := pub.Size() - 2*hash.Size() - 2
	if chunkSize <= 0 {
		return "", fmt.Errorf("keys: key too small for OAEP chunking")
	}
	var out bytes.Buffer
	for offset := 0; offset < len(plaintext) || offset == 0; offset += chunkSize {
		end := offset + chunkSize
		if end > len(plaintext) {
			end = len(plaintext)
		}
		chunk, err := rsa.EncryptOAEP(hash, rand.Reader, pub, plaintext[offset:end], nil)
		if err != nil {
			return "", fmt.Errorf("keys: encrypt chunk: %w", err)
		}
		out.WriteString(base64.StdEncoding.EncodeToString(chunk))
		out.WriteByte('\n')
		if end == len(plaintext) {
			break
		}
	}
	return out.String(), nil
}
