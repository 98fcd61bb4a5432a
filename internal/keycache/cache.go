// Package keycache maps logins to their verified OpenPGP public keys,
// refreshing from the identity provider on a cache miss.
package keycache

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"sync"

	"github.com/jean-voila/nexium/internal/identity"
	"github.com/jean-voila/nexium/internal/keys"
)

// entry holds a login's resolved keys and a balance slot written only by
// SetBalance.
type entry struct {
	keys    []*rsa.PublicKey
	balance int64
}

// Cache resolves and caches per-login public keys. No active eviction:
// entries live for the process lifetime once created.
type Cache struct {
	client *identity.Client

	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a cache backed by client.
func New(client *identity.Client) *Cache {
	return &Cache{client: client, entries: make(map[string]*entry)}
}

// Refresh fetches login's armored keys from the identity provider, decodes
// each into an RSA public key, discards those that fail to parse, and
// replaces the login's cached key list.
func (c *Cache) Refresh(login string) error {
	armored, err := c.client.GetKeys(login)
	if err != nil {
		return err
	}
	parsed := make([]*rsa.PublicKey, 0, len(armored))
	for _, a := range armored {
		pub, err := keys.ParseArmoredPublicKey(a)
		if err != nil {
			continue
		}
		parsed = append(parsed, pub)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[login]
	if !ok {
		e = &entry{}
		c.entries[login] = e
	}
	e.keys = parsed
	return nil
}

// FindKey returns the first cached key for login whose verification of
// message against signature succeeds. On a miss it triggers one refresh and
// retries once; a second miss returns ok=false.
func (c *Cache) FindKey(login string, signature [256]byte, message []byte) (*rsa.PublicKey, bool) {
	return c.Resolve(login, func(pub *rsa.PublicKey) bool {
		return verifySample(pub, signature, message)
	})
}

// Resolve returns the first cached key for login satisfying verify. On a
// miss it triggers one refresh and retries once; a second miss returns
// ok=false. It underlies both request authentication (FindKey) and
// transaction signature verification.
func (c *Cache) Resolve(login string, verify func(*rsa.PublicKey) bool) (*rsa.PublicKey, bool) {
	if pub, ok := c.tryCached(login, verify); ok {
		return pub, true
	}
	if err := c.Refresh(login); err != nil {
		return nil, false
	}
	return c.tryCached(login, verify)
}

func (c *Cache) tryCached(login string, verify func(*rsa.PublicKey) bool) (*rsa.PublicKey, bool) {
	c.mu.Lock()
	e, ok := c.entries[login]
	var candidates []*rsa.PublicKey
	if ok {
		candidates = append(candidates, e.keys...)
	}
	c.mu.Unlock()
	for _, pub := range candidates {
		if verify(pub) {
			return pub, true
		}
	}
	return nil, false
}

// verifySample checks signature against an RSA-PKCS1v15 signature of
// SHA-256(message) under pub, the same scheme core uses for transactions.
func verifySample(pub *rsa.PublicKey, signature [256]byte, message []byte) bool {
	digest := sha256.Sum256(message)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature[:]) == nil
}

// Keys returns the currently cached public keys for login, without
// triggering a refresh.
func (c *Cache) Keys(login string) []*rsa.PublicKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[login]
	if !ok {
		return nil
	}
	return append([]*rsa.PublicKey(nil), e.keys...)
}

// SetBalance stores balance in login's entry, creating the entry if needed
// and leaving its key list untouched. The cache exposes no getter for this
// value and never reads it back itself.
func (c *Cache) SetBalance(login string, balance int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[login]
	if !ok {
		e = &entry{}
		c.entries[login] = e
	}
	e.balance = balance
}
