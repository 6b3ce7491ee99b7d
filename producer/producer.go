package producer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/log"
)

const DefaultInterval = 10 * time.Second

var (
	ErrAlreadyRunning = errors.New("producer is already running")
	ErrNotRunning     = errors.New("producer is not running")
)

// Config holds the block production schedule.
type Config struct {
	// Interval is the time between scheduled production attempts.
	Interval time.Duration

	// Miner is the coinbase address used on proof-of-work chains. Stake-based
	// chains pick the miner through validator selection instead.
	Miner string
}

// Producer drives block production: a scheduler goroutine emits discrete
// produce events into a channel and a single worker consumes them. Ticks that
// land while the worker is busy are skipped, never queued up.
type Producer struct {
	ledger *ledger.Ledger
	engine *consensus.Engine
	cfg    Config

	events chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	isRunning atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

func New(led *ledger.Ledger, engine *consensus.Engine, cfg Config) (*Producer, error) {
	if led == nil {
		return nil, errors.New("ledger is nil")
	}
	if engine == nil {
		return nil, errors.New("consensus engine is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if engine.Mode() == consensus.ModePoW && cfg.Miner == "" {
		return nil, errors.New("miner address is required for proof-of-work production")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Producer{
		ledger: led,
		engine: engine,
		cfg:    cfg,
		events: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start launches the scheduler and the worker.
func (p *Producer) Start() error {
	var err error
	p.startOnce.Do(func() {
		if p.isRunning.Load() {
			err = ErrAlreadyRunning
			return
		}
		p.isRunning.Store(true)
		p.wg.Add(2)
		go p.schedule()
		go p.work()
		log.Info(log.ProducerModule, "producer started", "interval", p.cfg.Interval)
	})
	return err
}

// Stop halts production and waits for the worker to finish its current
// attempt.
func (p *Producer) Stop() error {
	var err error
	p.stopOnce.Do(func() {
		if !p.isRunning.Load() {
			err = ErrNotRunning
			return
		}
		p.cancel()
		p.wg.Wait()
		p.isRunning.Store(false)
		log.Info(log.ProducerModule, "producer stopped")
	})
	return err
}

// Trigger requests an immediate production attempt without waiting for the
// next tick. Triggers during a busy worker coalesce into one event.
func (p *Producer) Trigger() {
	select {
	case p.events <- struct{}{}:
	default:
	}
}

func (p *Producer) schedule() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			select {
			case p.events <- struct{}{}:
			default:
			}
		}
	}
}

func (p *Producer) work() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.events:
			p.produce()
		}
	}
}

func (p *Producer) produce() {
	miner, err := p.minerAddress()
	if err != nil {
		log.Debug(log.ProducerModule, "no eligible producer", "err", err)
		return
	}

	block, err := p.ledger.MineBlock(p.ctx, miner)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPendingTransactions) {
			log.Trace(log.ProducerModule, "nothing to mine")
			return
		}
		log.Warn(log.ProducerModule, "block production failed", "miner", miner, "err", err)
		return
	}
	log.Debug(log.ProducerModule, "produced block", "height", block.Index, "txs", len(block.Transactions), "miner", miner)
}

// minerAddress resolves who mines the next block: the configured coinbase on
// pure proof-of-work chains, a stake-weighted pick everywhere else.
func (p *Producer) minerAddress() (string, error) {
	if p.engine.Mode() == consensus.ModePoW {
		return p.cfg.Miner, nil
	}
	return p.engine.SelectValidator()
}
