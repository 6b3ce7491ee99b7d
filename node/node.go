package node

import (
	"context"
	"errors"
	"fmt"

	"ledgerlab/api"
	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/ledger/store"
	"ledgerlab/log"
	"ledgerlab/producer"
)

const DefaultHTTPAddr = ":8080"

// Config holds everything needed to bring a node up.
type Config struct {
	Spec     *ChainSpec
	HTTPAddr string

	// Miner is the coinbase address for background production on
	// proof-of-work chains. Ignored when AutoMine is off.
	Miner    string
	AutoMine bool
}

// Node orchestrates the full stack: store, consensus engine, ledger,
// background producer and the HTTP API.
type Node struct {
	cfg Config

	// Core chain storage
	store *store.MemoryChainStore

	// Components (each package handles its own concern)
	engine   *consensus.Engine
	ledger   *ledger.Ledger
	producer *producer.Producer // nil when AutoMine is off
	server   *api.Server

	serveErr chan error
}

// New wires the components together from a chain spec. Nothing starts
// running until Start is called.
func New(cfg Config) (*Node, error) {
	if cfg.Spec == nil {
		cfg.Spec = DefaultChainSpec()
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	mode, err := consensus.ParseMode(cfg.Spec.Mode)
	if err != nil {
		return nil, err
	}

	engine, err := consensus.NewEngine(consensus.Config{
		Mode:               mode,
		Difficulty:         cfg.Spec.Difficulty,
		MinimumStake:       cfg.Spec.MinimumStake,
		SlashingPenalty:    cfg.Spec.SlashingPenalty,
		ReputationPenalty:  cfg.Spec.ReputationPenalty,
		SelectionThreshold: cfg.Spec.SelectionThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build consensus engine: %w", err)
	}

	for _, v := range cfg.Spec.GenesisValidators {
		if err := engine.AddValidator(v.Address, v.Stake); err != nil {
			return nil, fmt.Errorf("failed to seed validator %s: %w", v.Address, err)
		}
	}

	chainStore := store.NewMemoryChainStore()
	led, err := ledger.NewLedger(chainStore, engine, ledger.Config{
		Difficulty:      cfg.Spec.Difficulty,
		BlockReward:     cfg.Spec.BlockReward,
		MaxMineDuration: cfg.Spec.MaxMineDuration.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger: %w", err)
	}

	n := &Node{
		cfg:      cfg,
		store:    chainStore,
		engine:   engine,
		ledger:   led,
		server:   api.NewServer(led, engine, cfg.HTTPAddr),
		serveErr: make(chan error, 1),
	}

	if cfg.AutoMine {
		prod, err := producer.New(led, engine, producer.Config{
			Interval: cfg.Spec.MineInterval.Duration,
			Miner:    cfg.Miner,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build producer: %w", err)
		}
		n.producer = prod
	}

	return n, nil
}

// Ledger exposes the chain for local frontends like the console.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Engine exposes the validator registry for local frontends.
func (n *Node) Engine() *consensus.Engine {
	return n.engine
}

// Start brings up the producer and the HTTP server, then returns. Serve
// errors surface on the channel returned by ServeErr.
func (n *Node) Start() error {
	if n.producer != nil {
		if err := n.producer.Start(); err != nil {
			return fmt.Errorf("failed to start producer: %w", err)
		}
	}

	go func() {
		n.serveErr <- n.server.Start()
	}()

	log.Info(log.NodeModule, "node started",
		"chain", n.cfg.Spec.Name,
		"mode", n.cfg.Spec.Mode,
		"http", n.cfg.HTTPAddr,
		"automine", n.cfg.AutoMine)
	return nil
}

// ServeErr reports the HTTP server's exit. It yields nil after a clean
// Shutdown and the listener error otherwise.
func (n *Node) ServeErr() <-chan error {
	return n.serveErr
}

// Stop tears the node down in reverse order: production first so nothing new
// is mined while the API drains.
func (n *Node) Stop(ctx context.Context) error {
	var errs []error

	if n.producer != nil {
		if err := n.producer.Stop(); err != nil && !errors.Is(err, producer.ErrNotRunning) {
			errs = append(errs, fmt.Errorf("producer stop: %w", err))
		}
	}
	if err := n.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("api shutdown: %w", err))
	}

	log.Info(log.NodeModule, "node stopped", "chain", n.cfg.Spec.Name)
	return errors.Join(errs...)
}

// WaitForInterrupt blocks until ctx is cancelled or the HTTP server dies on
// its own.
func (n *Node) WaitForInterrupt(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-n.serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return errors.New("http server exited unexpectedly")
	}
}
