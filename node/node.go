// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package node

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/aungmawjj/benor/consensus"
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/logger"
	"github.com/aungmawjj/benor/metrics"
	"github.com/aungmawjj/benor/p2p"
	"github.com/aungmawjj/benor/storage"
	"github.com/multiformats/go-multiaddr"
)

type Node struct {
	config Config
	peers  []PeerInfo

	storage    *storage.Storage
	host       *p2p.Host
	msgSvc     consensus.MsgService
	httpMsgSvc *p2p.HTTPMsgService
	consensus  *consensus.Consensus
	server     *http.Server
}

// Run starts a node and blocks until the process is interrupted
func Run(config Config) {
	node := new(Node)
	node.config = config
	node.setupLogger()
	node.readFiles()
	node.setupComponents()
	node.serveAPI()
	logger.I().Infow("node setup done",
		"node", config.ConsensusConfig.NodeID,
		"transport", config.Transport,
		"api", config.apiPort())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	node.Close()
}

func (node *Node) setupLogger() {
	inst, err := logger.New(logger.Config{Debug: node.config.Debug})
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	logger.Set(inst)
}

func (node *Node) readFiles() {
	peers, found, err := readPeers(node.config.Datadir)
	if err != nil {
		logger.I().Fatalw("read peers failed", "error", err)
	}
	if !found {
		peers = DefaultPeers(node.config)
	}
	node.peers = peers
	logger.I().Infow("read peers", "count", len(node.peers), "file", found)
}

func (node *Node) setupComponents() {
	metrics.Register()
	if err := node.setupStorage(); err != nil {
		logger.I().Fatalw("setup storage failed", "error", err)
	}
	if err := node.setupMsgService(); err != nil {
		logger.I().Fatalw("setup message service failed", "error", err)
	}
	if err := node.setupConsensus(); err != nil {
		logger.I().Fatalw("setup consensus failed", "error", err)
	}
}

func (node *Node) setupStorage() error {
	dir := ""
	if node.config.Datadir != "" {
		dir = path.Join(node.config.Datadir, "db")
	}
	db, err := storage.NewDB(dir)
	if err != nil {
		return fmt.Errorf("cannot create db %w", err)
	}
	node.storage = storage.New(db)
	return nil
}

func (node *Node) setupMsgService() error {
	switch node.config.Transport {
	case TransportP2P:
		return node.setupHost()
	case TransportHTTP, "":
		endpoints := make(map[int]string, len(node.peers))
		for _, p := range node.peers {
			endpoints[p.ID] = p.Endpoint
		}
		node.httpMsgSvc = p2p.NewHTTPMsgService(
			node.config.ConsensusConfig.NodeID, endpoints, node.config.MessageTimeout)
		node.msgSvc = node.httpMsgSvc
		return nil
	default:
		return fmt.Errorf("unknown transport %q", node.config.Transport)
	}
}

func (node *Node) setupHost() error {
	port := node.config.p2pPort()
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("cannot listen on %d, %w", port, err)
	}
	ln.Close()

	cfg := node.config.ConsensusConfig
	addr, _ := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", port))
	host, err := p2p.NewHost(core.NodeKey(cfg.Seed, cfg.NodeID), addr)
	if err != nil {
		return fmt.Errorf("cannot create p2p host %w", err)
	}
	msgSvc := p2p.NewMsgService(host)
	for _, p := range node.peers {
		if p.ID == cfg.NodeID {
			continue
		}
		peerAddr, err := multiaddr.NewMultiaddr(p.Addr)
		if err != nil {
			return fmt.Errorf("invalid multiaddr of peer %d, %w", p.ID, err)
		}
		pubKey := core.NodeKey(cfg.Seed, p.ID).Public().(ed25519.PublicKey)
		host.AddPeer(p2p.NewPeer(p.ID, pubKey, peerAddr))
	}
	node.host = host
	node.msgSvc = msgSvc
	logger.I().Infow("setup p2p host", "port", port)
	return nil
}

func (node *Node) setupConsensus() error {
	cons, err := consensus.New(&consensus.Resources{
		MsgSvc:  node.msgSvc,
		Journal: node.storage,
	}, node.config.ConsensusConfig)
	if err != nil {
		return err
	}
	node.consensus = cons
	return nil
}

func (node *Node) serveAPI() {
	node.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", node.config.apiPort()),
		Handler: newRouter(node),
	}
	go func() {
		if err := node.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.I().Fatalf("failed to start api %+v", err)
		}
	}()
}

// deliver passes an inbound api message to the engine
func (node *Node) deliver(msg *core.Message) {
	if node.httpMsgSvc != nil {
		node.httpMsgSvc.Deliver(msg)
		return
	}
	node.consensus.Deliver(msg)
}

func (node *Node) Close() {
	if node.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		node.server.Shutdown(ctx)
		cancel()
	}
	if node.consensus != nil {
		node.consensus.Close()
	}
	if node.host != nil {
		node.host.Close()
	}
	if node.storage != nil {
		node.storage.Close()
	}
	logger.I().Infow("node closed", "node", node.config.ConsensusConfig.NodeID)
}
