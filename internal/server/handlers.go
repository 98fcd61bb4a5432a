package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jean-voila/nexium/core"
	"github.com/jean-voila/nexium/internal/keys"
	"github.com/jean-voila/nexium/internal/peermesh"
	"github.com/jean-voila/nexium/internal/server/middleware"
	"github.com/jean-voila/nexium/pkg/utils"
)

// noiseLength matches the 7-character padding the reference implementation
// mixes into stats responses.
const noiseLength = 7

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "pong")
}

type blockchainInfoResponse struct {
	BlockCount int    `json:"block_count"`
	Size       int64  `json:"size"`
	LastHash   string `json:"last_hash"`
}

func (s *Server) handleBlockchainInfo(w http.ResponseWriter, r *http.Request) {
	tip, count := s.Chain.Tip()
	resp := blockchainInfoResponse{
		BlockCount: count,
		Size:       s.Chain.Size(),
		LastHash:   fmt.Sprintf("%x", tip[:]),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBlockchainDownload(w http.ResponseWriter, r *http.Request) {
	raw, err := s.Chain.ReadAll()
	if err != nil {
		http.Error(w, "read chain store", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, base64.StdEncoding.EncodeToString(raw))
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Registry.List())
}

func (s *Server) handleRegisterPeer(w http.ResponseWriter, r *http.Request) {
	var peer peermesh.Peer
	if err := json.NewDecoder(r.Body).Decode(&peer); err != nil {
		http.Error(w, "malformed peer body", http.StatusBadRequest)
		return
	}
	if _, err := s.Registry.Add(peer); err != nil {
		s.Logger.Warnf("register_peer: persist %s:%d failed: %v", peer.Address, peer.Port, err)
	}
	writeJSON(w, http.StatusOK, s.Registry.List())
}

func (s *Server) handleSyncTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed transaction", http.StatusBadRequest)
		return
	}
	tx, err := fromTransactionJSON(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.acceptTransaction(tx, false)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSyncBlock(w http.ResponseWriter, r *http.Request) {
	encoded, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		http.Error(w, "malformed base64 block", http.StatusBadRequest)
		return
	}
	block, err := core.ParseBlock(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hash, err := block.Hash()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Chain.Append(block, hash); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	login := mux.Vars(r)["login"]
	stats, err := s.Chain.Stats(login)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload, err := json.Marshal(struct {
		Balance           int64  `json:"balance"`
		SentCount         int    `json:"sent_count"`
		ReceivedCount     int    `json:"received_count"`
		TotalSent         int64  `json:"total_sent"`
		TotalReceived     int64  `json:"total_received"`
		TotalTransactions int    `json:"total_transactions"`
		Noise             string `json:"noise"`
	}{
		stats.Balance,
		stats.SentCount,
		stats.ReceivedCount,
		stats.TotalSent,
		stats.TotalReceived,
		stats.TotalTransactions(),
		utils.Noise(noiseLength),
	})
	if err != nil {
		http.Error(w, "encode stats", http.StatusInternalServerError)
		return
	}

	requester, _ := middleware.LoginFromContext(r.Context())
	pubs := s.KeyCache.Keys(requester)
	if len(pubs) == 0 {
		http.Error(w, "no key on file for requester", http.StatusUnauthorized)
		return
	}
	encrypted, err := keys.EncryptSplit(pubs[0], payload)
	if err != nil {
		http.Error(w, "encrypt response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"payload": encrypted})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed transaction", http.StatusBadRequest)
		return
	}
	tx, err := fromTransactionJSON(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.acceptTransaction(tx, true)
	w.WriteHeader(http.StatusOK)
}

// acceptTransaction adds tx to the mempool and, for locally-originated
// transactions, gossips it to peers. Sealing the mempool when full is a
// local, deterministic action regardless of origin, and the resulting block
// is always broadcast — only the triggering transaction's re-broadcast is
// suppressed on the sync path, preventing gossip loops.
func (s *Server) acceptTransaction(tx *core.Transaction, broadcast bool) {
	if err := core.ValidateLogin(tx.Header.Emitter); err != nil {
		s.Logger.Warnf("transaction rejected: %v", err)
		return
	}
	if _, ok := s.KeyCache.Resolve(tx.Header.Emitter, tx.Verify); !ok {
		s.Logger.Warnf("transaction rejected: no published key verifies signature for %s", tx.Header.Emitter)
		return
	}
	if err := s.Mempool.Add(tx); err != nil {
		s.Logger.Warnf("mempool add rejected: %v", err)
		return
	}
	if broadcast {
		if j, err := toTransactionJSON(tx); err == nil {
			if body, err := json.Marshal(j); err == nil {
				s.Dispatcher.BroadcastTransaction(body)
			}
		}
	}
	if s.Mempool.IsFull() {
		s.sealMempool()
	}
}

func (s *Server) sealMempool() {
	txs := s.Mempool.Drain()
	tip, _ := s.Chain.Tip()
	block, hash, err := core.SealBlock(tip, txs, s.Difficulty)
	if err != nil {
		s.Logger.Warnf("seal failed: %v", err)
		return
	}
	if err := s.Chain.Append(block, hash); err != nil {
		s.Logger.Warnf("append sealed block failed: %v", err)
		return
	}
	raw, err := block.Serialize()
	if err != nil {
		s.Logger.Warnf("serialize sealed block failed: %v", err)
		return
	}
	s.Dispatcher.BroadcastBlock(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
