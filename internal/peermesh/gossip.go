package peermesh

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jean-voila/nexium/pkg/utils"
)

// broadcastTimeout bounds every outbound gossip POST. Overridable via
// NEXIUM_BROADCAST_TIMEOUT_SECONDS for operators running over high-latency
// links between peers.
var broadcastTimeout = time.Duration(utils.EnvOrDefaultUint64("NEXIUM_BROADCAST_TIMEOUT_SECONDS", 2)) * time.Second

// Dispatcher fans broadcast notifications out to every known peer,
// fire-and-forget: one goroutine per peer, short timeout, failures dropped
// silently (observable only in logs). Recipients apply items via the
// sync_* routes, which do not themselves re-broadcast, preventing loops.
type Dispatcher struct {
	registry *Registry
	client   *http.Client
	logger   *logrus.Logger
}

// NewDispatcher returns a gossip dispatcher fanning out over registry.
func NewDispatcher(registry *Registry, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		registry: registry,
		client:   &http.Client{Timeout: broadcastTimeout},
		logger:   logger,
	}
}

// BroadcastTransaction sends txJSON to every known peer's /sync_transaction.
func (d *Dispatcher) BroadcastTransaction(txJSON []byte) {
	d.fanOut("/sync_transaction", "application/json", txJSON)
}

// BroadcastBlock sends a base64-encoded raw block to every known peer's
// /sync_block.
func (d *Dispatcher) BroadcastBlock(rawBlock []byte) {
	encoded := []byte(base64.StdEncoding.EncodeToString(rawBlock))
	d.fanOut("/sync_block", "text/plain", encoded)
}

func (d *Dispatcher) fanOut(path, contentType string, body []byte) {
	peers := d.registry.List()
	for _, p := range peers {
		peer := p
		go func() {
			url := fmt.Sprintf("http://%s:%d%s", peer.Address, peer.Port, path)
			req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				d.logger.Warnf("peermesh: build broadcast request to %s: %v", url, err)
				return
			}
			req.Header.Set("Content-Type", contentType)
			resp, err := d.client.Do(req)
			if err != nil {
				d.logger.Warnf("peermesh: broadcast to %s failed: %v", url, err)
				return
			}
			resp.Body.Close()
		}()
	}
}
