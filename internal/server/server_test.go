package server

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/jean-voila/nexium/core"
	"github.com/jean-voila/nexium/internal/identity"
	"github.com/jean-voila/nexium/internal/keycache"
	"github.com/jean-voila/nexium/internal/keys"
	"github.com/jean-voila/nexium/internal/peermesh"
)

type gitlabUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type gitlabGPGKey struct {
	ID  int    `json:"id"`
	Key string `json:"key"`
}

func newTestServer(t *testing.T, login string) (*Server, *rsa.PrivateKey) {
	t.Helper()
	kp, err := keys.Generate(login)
	if err != nil {
		t.Fatalf("keys.Generate: %v", err)
	}
	armored, err := keys.ArmorPublicKey(kp.Entity)
	if err != nil {
		t.Fatalf("ArmorPublicKey: %v", err)
	}

	identityMux := http.NewServeMux()
	identityMux.HandleFunc("/api/v4/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]gitlabUser{{ID: 1, Username: login}})
	})
	identityMux.HandleFunc("/api/v4/users/1/gpg_keys", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]gitlabGPGKey{{ID: 1, Key: armored}})
	})
	identitySrv := httptest.NewServer(identityMux)
	t.Cleanup(identitySrv.Close)

	client := identity.NewClient(identitySrv.URL, "tok", identity.TokenClassic)
	cache := keycache.New(client)

	chain, err := core.OpenChainStore(filepath.Join(t.TempDir(), "chain.dat"))
	if err != nil {
		t.Fatalf("OpenChainStore: %v", err)
	}
	t.Cleanup(func() { chain.Close() })

	registry, err := peermesh.Load(filepath.Join(t.TempDir(), "peers.json"), "127.0.0.1", 4242)
	if err != nil {
		t.Fatalf("peermesh.Load: %v", err)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	srv := &Server{
		Chain:      chain,
		Mempool:    core.NewMempool(2),
		Registry:   registry,
		Dispatcher: peermesh.NewDispatcher(registry, logger),
		KeyCache:   cache,
		Logger:     logger,
		Self:       peermesh.Peer{Address: "127.0.0.1", Port: 4242},
		Difficulty: 0,
	}
	return srv, kp.Private
}

func signSample(t *testing.T, priv *rsa.PrivateKey) string {
	t.Helper()
	digest := sha256.Sum256([]byte(core.SigSample))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign sample: %v", err)
	}
	var sigArr [256]byte
	copy(sigArr[:], sig)
	return core.SignatureToDecimal(sigArr)
}

func TestHandlePing(t *testing.T) {
	srv, _ := newTestServer(t, "alice.one")
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /ping = (%d, %q), want (200, pong)", rec.Code, rec.Body.String())
	}
}

func TestHandleBalanceRejectsMissingAuth(t *testing.T) {
	srv, _ := newTestServer(t, "alice.one")
	req := httptest.NewRequest(http.MethodGet, "/balance/alice.one", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /balance without auth = %d, want 401", rec.Code)
	}
}

func TestHandleBalanceSucceedsWithAuth(t *testing.T) {
	srv, priv := newTestServer(t, "alice.one")
	req := httptest.NewRequest(http.MethodGet, "/balance/alice.one", nil)
	req.Header.Set("Login", "alice.one")
	req.Header.Set("Sig-Sample", signSample(t, priv))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /balance with auth = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["payload"] == "" {
		t.Fatal("expected a non-empty encrypted payload")
	}
}

func TestHandleTransactionFillsMempoolAndSealsBlock(t *testing.T) {
	srv, priv := newTestServer(t, "alice.one")

	postTx := func(amount uint32) int {
		tx, err := core.NewTransaction("alice.one", core.ClassicTransactionData{Receiver: "bob.two", Amount: amount}, 0, priv)
		if err != nil {
			t.Fatalf("NewTransaction: %v", err)
		}
		j, err := toTransactionJSON(tx)
		if err != nil {
			t.Fatalf("toTransactionJSON: %v", err)
		}
		body, err := json.Marshal(j)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/transaction", bytes.NewReader(body))
		req.Header.Set("Login", "alice.one")
		req.Header.Set("Sig-Sample", signSample(t, priv))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := postTx(1); code != http.StatusOK {
		t.Fatalf("first POST /transaction = %d, want 200", code)
	}
	if _, count := srv.Chain.Tip(); count != 0 {
		t.Fatalf("chain count after one tx (capacity 2) = %d, want 0", count)
	}
	if code := postTx(2); code != http.StatusOK {
		t.Fatalf("second POST /transaction = %d, want 200", code)
	}
	if _, count := srv.Chain.Tip(); count != 1 {
		t.Fatalf("chain count after mempool fills = %d, want 1", count)
	}
	if srv.Mempool.Len() != 0 {
		t.Fatalf("mempool len after seal = %d, want 0", srv.Mempool.Len())
	}
}

func TestHandleSyncBlockRejectsNonTipExtension(t *testing.T) {
	srv, priv := newTestServer(t, "alice.one")
	tx, err := core.NewTransaction("alice.one", core.ClassicTransactionData{Receiver: "bob.two", Amount: 1}, 0, priv)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	wrongPrevious := core.Hash{0xFF}
	block, _, err := core.SealBlock(wrongPrevious, []*core.Transaction{tx}, 0)
	if err != nil {
		t.Fatalf("SealBlock: %v", err)
	}
	raw, err := block.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	encoded := []byte(base64.StdEncoding.EncodeToString(raw))
	req := httptest.NewRequest(http.MethodPost, "/sync_block", bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /sync_block with wrong previous hash = %d, want 400", rec.Code)
	}
}

func TestHandleRegisterPeer(t *testing.T) {
	srv, _ := newTestServer(t, "alice.one")
	body, _ := json.Marshal(peermesh.Peer{Address: "10.0.0.5", Port: 5000})
	req := httptest.NewRequest(http.MethodPost, "/register_peer", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /register_peer = %d, want 200", rec.Code)
	}
	var peers []peermesh.Peer
	if err := json.Unmarshal(rec.Body.Bytes(), &peers); err != nil {
		t.Fatalf("decode peers: %v", err)
	}
	if len(peers) != 1 || peers[0].Address != "10.0.0.5" {
		t.Fatalf("peers = %+v, want one entry for 10.0.0.5", peers)
	}
}
