package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"ledgerlab/api/handlers"
	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/log"
)

// Server exposes the ledger and consensus engine over HTTP, plus a
// websocket feed that pushes every committed block to connected clients.
type Server struct {
	ledger  *ledger.Ledger
	engine  *consensus.Engine
	addr    string
	mux     *http.ServeMux
	hub     *Hub
	httpSrv *http.Server

	cancelFeed func()
	wg         sync.WaitGroup
}

// NewServer creates a new API server
func NewServer(led *ledger.Ledger, engine *consensus.Engine, addr string) *Server {
	server := &Server{
		ledger: led,
		engine: engine,
		addr:   addr,
		mux:    http.NewServeMux(),
		hub:    newHub(context.Background()),
	}

	server.setupRoutes()
	server.httpSrv = &http.Server{Addr: addr, Handler: server.mux}
	return server
}

// setupRoutes configures all HTTP endpoints
func (s *Server) setupRoutes() {
	// Chain endpoints
	s.mux.HandleFunc("/api/chain", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChain(w, r, s.ledger)
	})
	s.mux.HandleFunc("/api/chain/validate", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleValidateChain(w, r, s.ledger)
	})

	// Transaction endpoints
	s.mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleTransactions(w, r, s.ledger)
	})
	s.mux.HandleFunc("/api/transactions/build", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleBuildTransaction(w, r)
	})
	s.mux.HandleFunc("/api/pending", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandlePending(w, r, s.ledger)
	})

	// Mining endpoint
	s.mux.HandleFunc("/api/mine", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleMine(w, r, s.ledger, s.engine)
	})

	// Validator endpoints
	s.mux.HandleFunc("/api/validators", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleValidators(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/validators/slash", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleSlashValidator(w, r, s.engine)
	})

	// Account endpoints
	s.mux.HandleFunc("/api/balance/", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleBalance(w, r, s.ledger) // Handles /api/balance/{address}
	})

	// Stats endpoint
	s.mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleStats(w, r, s.ledger, s.engine)
	})

	// Live block feed
	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(s.hub, w, r, &s.wg)
	})
}

// Handler returns the route table so tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// startFeed launches the hub and the bridge from the ledger subscription to
// connected websocket clients.
func (s *Server) startFeed() {
	s.wg.Add(1)
	go s.hub.run(&s.wg)

	blocks, cancel := s.ledger.SubscribeBlocks(16)
	s.cancelFeed = cancel
	s.wg.Add(1)
	go s.streamBlocks(blocks)
}

// Start begins serving HTTP requests. It blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start() error {
	s.startFeed()

	log.Info(log.APIModule, "http api listening", "addr", s.addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the block feed, disconnects websocket clients and drains
// in-flight HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancelFeed != nil {
		s.cancelFeed()
	}
	s.hub.cancel()
	err := s.httpSrv.Shutdown(ctx)
	s.wg.Wait()
	return err
}

type feedEvent struct {
	Method string `json:"method"`
	Result any    `json:"result"`
}

// streamBlocks forwards committed blocks from the ledger subscription to the
// websocket hub, tagging each with a fresh stats snapshot.
func (s *Server) streamBlocks(blocks <-chan ledger.Block) {
	defer s.wg.Done()
	for block := range blocks {
		s.publish("new_block", block)
		if stats, err := s.ledger.NetworkStats(); err == nil {
			s.publish("stats", stats)
		}
	}
}

func (s *Server) publish(method string, result any) {
	payload, err := json.Marshal(feedEvent{Method: method, Result: result})
	if err != nil {
		log.Error(log.APIModule, "feed payload encoding failed", "method", method, "err", err)
		return
	}
	select {
	case s.hub.broadcast <- payload:
	case <-s.hub.ctx.Done():
	}
}
