package peermesh

import (
	"path/filepath"
	"testing"
)

func TestRegistryAddDedupesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.json")
	reg, err := Load(path, "127.0.0.1", 4242)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	added, err := reg.Add(Peer{Address: "10.0.0.1", Port: 4242})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatal("Add = false for a new peer, want true")
	}

	added, err = reg.Add(Peer{Address: "10.0.0.1", Port: 4242})
	if err != nil {
		t.Fatalf("Add duplicate: %v", err)
	}
	if added {
		t.Fatal("Add = true for a duplicate peer, want false")
	}

	if len(reg.List()) != 1 {
		t.Fatalf("List() len = %d, want 1", len(reg.List()))
	}

	reopened, err := Load(path, "127.0.0.1", 4242)
	if err != nil {
		t.Fatalf("reopen Load: %v", err)
	}
	if len(reopened.List()) != 1 {
		t.Fatalf("reopened List() len = %d, want 1", len(reopened.List()))
	}
}

func TestRegistryAddFiltersSelf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.json")
	reg, err := Load(path, "127.0.0.1", 4242)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	added, err := reg.Add(Peer{Address: "127.0.0.1", Port: 4242})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added {
		t.Error("Add = true for self, want false")
	}
	if len(reg.List()) != 0 {
		t.Errorf("List() len = %d, want 0", len(reg.List()))
	}
}
