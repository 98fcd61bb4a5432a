package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jean-voila/nexium/core"
	"github.com/jean-voila/nexium/internal/identity"
	"github.com/jean-voila/nexium/internal/keycache"
	"github.com/jean-voila/nexium/internal/peermesh"
	"github.com/jean-voila/nexium/internal/server"
	"github.com/jean-voila/nexium/pkg/config"
)

func newRunCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the node: open the chain store, sync with peers, and serve the HTTP mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "path to config.json")
	return cmd
}

func runNode(configPath string) error {
	logger := logrus.StandardLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	chain, err := core.OpenChainStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}
	defer chain.Close()

	registry, err := peermesh.Load("peers.json", cfg.Network.Address, uint16(cfg.Port))
	if err != nil {
		return fmt.Errorf("load peer registry: %w", err)
	}
	for _, addr := range cfg.Network.BootstrapPeers {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			logger.Warnf("skipping malformed bootstrap peer %q: %v", addr, err)
			continue
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			logger.Warnf("skipping bootstrap peer %q: bad port: %v", addr, err)
			continue
		}
		if _, err := registry.Add(peermesh.Peer{Address: host, Port: uint16(port)}); err != nil {
			logger.Warnf("persist bootstrap peer %q: %v", addr, err)
		}
	}

	idClient := identity.NewClient(cfg.GitlabAPIURL, cfg.GitlabToken, identity.TokenClassic)
	cache := keycache.New(idClient)
	dispatcher := peermesh.NewDispatcher(registry, logger)

	self := peermesh.Peer{Address: cfg.Network.Address, Port: uint16(cfg.Port)}
	syncer := peermesh.NewSyncer(registry, chain, self, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := syncer.SyncOnce(ctx); err != nil {
		logger.Warnf("initial sync round failed: %v", err)
	}
	syncer.Start(ctx, 30*time.Second)
	defer syncer.Stop()

	srv := &server.Server{
		Chain:      chain,
		Mempool:    core.NewMempool(core.TransactionsPerBlock),
		Registry:   registry,
		Dispatcher: dispatcher,
		KeyCache:   cache,
		Logger:     logger,
		Self:       self,
		Difficulty: core.DifficultyTarget,
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Infof("nexium node listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
