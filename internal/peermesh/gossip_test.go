package peermesh

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDispatcherBroadcastTransactionReachesPeer(t *testing.T) {
	var mu sync.Mutex
	var received []byte
	done := make(chan struct{}, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/sync_transaction", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = body
		mu.Unlock()
		done <- struct{}{}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	registryPath := filepath.Join(t.TempDir(), "peers.json")
	registry, err := Load(registryPath, "127.0.0.1", 9999)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	peer := peerFromServerURL(t, srv.URL)
	if _, err := registry.Add(peer); err != nil {
		t.Fatalf("Add: %v", err)
	}

	dispatcher := NewDispatcher(registry, logrus.New())
	dispatcher.BroadcastTransaction([]byte(`{"emitter":"alice.one"}`))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received the broadcast transaction")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(received) != `{"emitter":"alice.one"}` {
		t.Fatalf("received body = %s, want the broadcast JSON", received)
	}
}

func TestDispatcherBroadcastBlockBase64Encodes(t *testing.T) {
	done := make(chan []byte, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/sync_block", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		done <- body
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	registryPath := filepath.Join(t.TempDir(), "peers.json")
	registry, err := Load(registryPath, "127.0.0.1", 9999)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	peer := peerFromServerURL(t, srv.URL)
	if _, err := registry.Add(peer); err != nil {
		t.Fatalf("Add: %v", err)
	}

	raw := []byte("raw-block-bytes")
	dispatcher := NewDispatcher(registry, logrus.New())
	dispatcher.BroadcastBlock(raw)

	select {
	case body := <-done:
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			t.Fatalf("decode broadcast body: %v", err)
		}
		if string(decoded) != string(raw) {
			t.Fatalf("decoded block = %q, want %q", decoded, raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer never received the broadcast block")
	}
}
