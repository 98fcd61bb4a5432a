// Package server wires the nexium HTTP surface: routing, middleware, and
// the handlers bridging requests to the blockchain engine, key cache, and
// peer mesh.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jean-voila/nexium/core"
	"github.com/jean-voila/nexium/internal/keycache"
	"github.com/jean-voila/nexium/internal/peermesh"
	"github.com/jean-voila/nexium/internal/server/middleware"
)

// Server owns the chain store, mempool, peer registry and key cache, and
// exposes them to inbound HTTP requests. It does not own any network
// listener itself — the `run` command (cmd/node) binds one.
type Server struct {
	Chain      *core.ChainStore
	Mempool    *core.Mempool
	Registry   *peermesh.Registry
	Dispatcher *peermesh.Dispatcher
	KeyCache   *keycache.Cache
	Logger     *logrus.Logger
	Self       peermesh.Peer
	Difficulty uint32
}

// Router builds the mux.Router for this server, with request logging on
// every route and signature authentication on /balance and /transaction.
func (s *Server) Router() http.Handler {
	if s.Logger == nil {
		s.Logger = logrus.StandardLogger()
	}
	r := mux.NewRouter()
	r.Use(middleware.Logger(s.Logger))

	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/blockchain_info", s.handleBlockchainInfo).Methods(http.MethodGet)
	r.HandleFunc("/blockchain_download", s.handleBlockchainDownload).Methods(http.MethodGet)
	r.HandleFunc("/peers", s.handlePeers).Methods(http.MethodGet)
	r.HandleFunc("/register_peer", s.handleRegisterPeer).Methods(http.MethodPost)
	r.HandleFunc("/sync_transaction", s.handleSyncTransaction).Methods(http.MethodPost)
	r.HandleFunc("/sync_block", s.handleSyncBlock).Methods(http.MethodPost)

	auth := middleware.Authenticate(s.KeyCache)
	r.Handle("/balance/{login}", auth(http.HandlerFunc(s.handleBalance))).Methods(http.MethodGet)
	r.Handle("/transaction", auth(http.HandlerFunc(s.handleTransaction))).Methods(http.MethodPost)

	return r
}
