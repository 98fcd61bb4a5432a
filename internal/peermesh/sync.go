package peermesh

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jean-voila/nexium/core"
	"github.com/jean-voila/nexium/pkg/utils"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// infoTimeout and downloadTimeout bound, respectively, peer registration /
// blockchain_info round-trips and the full chain download used to catch up.
// Both are overridable per deployment since they scale with peer count and
// chain size.
var (
	infoTimeout     = time.Duration(utils.EnvOrDefaultUint64("NEXIUM_PEER_INFO_TIMEOUT_SECONDS", uint64(core.PeerTimeout/time.Second))) * time.Second
	downloadTimeout = time.Duration(utils.EnvOrDefaultUint64("NEXIUM_PEER_DOWNLOAD_TIMEOUT_SECONDS", 30)) * time.Second
)

// BlockchainInfo mirrors the /blockchain_info response body.
type BlockchainInfo struct {
	BlockCount int    `json:"block_count"`
	Size       int64  `json:"size"`
	LastHash   string `json:"last_hash"`
}

// Syncer drives peer discovery, blockchain-length gossip, and catch-up
// download. It orchestrates calls between the registry and the chain store,
// exposing a small API controlled by the CLI's run loop.
type Syncer struct {
	registry *Registry
	chain    *core.ChainStore
	client   *http.Client
	logger   *logrus.Logger
	self     Peer

	mu     sync.RWMutex
	active bool
	quit   chan struct{}
}

// NewSyncer wires a syncer over registry and chain, identifying this node
// as self for registration calls.
func NewSyncer(registry *Registry, chain *core.ChainStore, self Peer, logger *logrus.Logger) *Syncer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Syncer{
		registry: registry,
		chain:    chain,
		client:   &http.Client{Timeout: infoTimeout},
		logger:   logger,
		self:     self,
		quit:     make(chan struct{}),
	}
}

// Start launches a background goroutine that periodically re-runs
// discovery and catch-up until the context is cancelled or Stop is called.
func (s *Syncer) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go s.loop(ctx, interval)
	s.logger.Info("sync engine started")
}

// Stop terminates the background synchronization loop.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	close(s.quit)
	s.active = false
	s.mu.Unlock()
	s.logger.Info("sync engine stopped")
}

func (s *Syncer) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Warnf("sync round error: %v", err)
			}
		}
	}
}

// SyncOnce runs one discovery + length-gossip + catch-up round against every
// known peer. It is exported so `nexium run` can trigger an initial pass
// before serving.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	var winner *Peer
	var winnerInfo BlockchainInfo

	for _, peer := range s.registry.List() {
		peers, err := s.registerWith(ctx, peer)
		if err != nil {
			s.logger.Warnf("peermesh: register with %s:%d failed: %v", peer.Address, peer.Port, err)
			continue
		}
		for _, discovered := range peers {
			added, err := s.registry.Add(discovered)
			if err != nil {
				s.logger.Warnf("peermesh: persist discovered peer: %v", err)
			}
			if added {
				if _, err := s.registerWith(ctx, discovered); err != nil {
					s.logger.Warnf("peermesh: register with discovered peer %s:%d failed: %v", discovered.Address, discovered.Port, err)
				}
			}
		}

		info, err := s.fetchInfo(ctx, peer)
		if err != nil {
			s.logger.Warnf("peermesh: blockchain_info from %s:%d failed: %v", peer.Address, peer.Port, err)
			continue
		}
		if winner == nil || info.BlockCount > winnerInfo.BlockCount {
			p := peer
			winner = &p
			winnerInfo = info
		}
	}

	_, localCount := s.chain.Tip()
	if winner != nil && winnerInfo.BlockCount > localCount {
		return s.catchUp(ctx, *winner)
	}
	return nil
}

// registerWith calls POST /register_peer on peer with our own endpoint and
// returns the peer list it replies with.
func (s *Syncer) registerWith(ctx context.Context, peer Peer) ([]Peer, error) {
	body, err := json.Marshal(s.self)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("http://%s:%d/register_peer", peer.Address, peer.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytesReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("register_peer status %d", resp.StatusCode)
	}
	var peers []Peer
	if err := json.NewDecoder(resp.Body).Decode(&peers); err != nil {
		return nil, err
	}
	return peers, nil
}

func (s *Syncer) fetchInfo(ctx context.Context, peer Peer) (BlockchainInfo, error) {
	url := fmt.Sprintf("http://%s:%d/blockchain_info", peer.Address, peer.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return BlockchainInfo{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return BlockchainInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return BlockchainInfo{}, fmt.Errorf("blockchain_info status %d", resp.StatusCode)
	}
	var info BlockchainInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return BlockchainInfo{}, err
	}
	return info, nil
}

// catchUp downloads peer's full chain file and atomically replaces the
// local chain store with it.
func (s *Syncer) catchUp(ctx context.Context, peer Peer) error {
	url := fmt.Sprintf("http://%s:%d/blockchain_download", peer.Address, peer.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("blockchain_download status %d", resp.StatusCode)
	}
	encoded, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return fmt.Errorf("peermesh: decode downloaded chain: %w", err)
	}
	s.logger.Infof("catching up to %s:%d", peer.Address, peer.Port)
	return s.chain.Replace(raw)
}
