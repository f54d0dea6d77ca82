package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"toolgate/internal/domain"
	"toolgate/internal/infra/telemetry"
)

// Pool keeps long-lived tool-server sessions alive across many
// synchronous calls. A dispatcher goroutine owns client lifecycle; each
// server type gets a serial actor so calls to the same type run in FIFO
// order while distinct types run in parallel.
//
// The dispatcher starts lazily on the first Call and Shutdown is not
// terminal: a later Call reinitializes the pool.
type Pool struct {
	factory         domain.ClientFactory
	logger          *zap.Logger
	metrics         domain.Metrics
	journal         domain.CallRecorder
	callTimeout     time.Duration
	shutdownTimeout time.Duration

	mu       sync.Mutex
	requests chan *callRequest
	stop     chan struct{}
	done     chan struct{}
	running  bool

	clientCount int
}

// Options configures a Pool.
type Options struct {
	Logger          *zap.Logger
	Metrics         domain.Metrics
	Journal         domain.CallRecorder
	CallTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// New constructs a Pool using the provided client factory.
func New(factory domain.ClientFactory, opts Options) *Pool {
	if factory == nil {
		panic("pool.New requires a client factory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = domain.DefaultCallTimeoutSeconds * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = domain.DefaultShutdownTimeoutSeconds * time.Second
	}
	return &Pool{
		factory:         factory,
		logger:          logger.Named("pool"),
		metrics:         metrics,
		journal:         opts.Journal,
		callTimeout:     callTimeout,
		shutdownTimeout: shutdownTimeout,
	}
}

type callRequest struct {
	ctx    context.Context
	req    domain.ToolRequest
	respCh chan callResponse
}

type callResponse struct {
	result domain.ToolResult
	err    error
}

// Call invokes a tool on a pooled connection and blocks the caller up to
// timeout (zero means the pool default). The timeout bounds the wait at
// the bridge only: an operation already handed to the actor runs to
// completion and its result is discarded, so external side effects are
// never half-cancelled. Only Shutdown tears down clients.
func (p *Pool) Call(ctx context.Context, serverType domain.ServerType, toolName string, args map[string]any, timeout time.Duration) (domain.ToolResult, error) {
	if timeout <= 0 {
		timeout = p.callTimeout
	}
	ctx, _ = telemetry.EnsureRequestMeta(ctx)

	requests, done := p.ensureRunning()

	req := &callRequest{
		ctx: ctx,
		req: domain.ToolRequest{
			ServerType: serverType,
			ToolName:   toolName,
			Args:       args,
			Timeout:    timeout,
		},
		respCh: make(chan callResponse, 1),
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case requests <- req:
	case <-done:
		return domain.ToolResult{}, domain.E(domain.CodeUnavailable, "pool.call", "pool is shutting down", nil)
	case <-ctx.Done():
		return domain.ToolResult{}, domain.E(domain.CodeCanceled, "pool.call", "", ctx.Err())
	case <-timer.C:
		return domain.ToolResult{}, p.timeoutError(serverType, toolName, timeout)
	}

	select {
	case resp := <-req.respCh:
		return resp.result, resp.err
	case <-ctx.Done():
		return domain.ToolResult{}, domain.E(domain.CodeCanceled, "pool.call", "", ctx.Err())
	case <-timer.C:
		p.metrics.ObserveCall(domain.CallMetric{
			ServerType: serverType,
			ToolName:   toolName,
			Status:     domain.CallStatusTimeout,
			Duration:   timeout,
		})
		telemetry.LoggerWithRequest(ctx, p.logger).Warn("call timed out",
			telemetry.EventField(telemetry.EventCallTimeout),
			telemetry.ServerTypeField(serverType),
			telemetry.ToolNameField(toolName),
			telemetry.DurationField(timeout),
		)
		return domain.ToolResult{}, p.timeoutError(serverType, toolName, timeout)
	}
}

func (p *Pool) timeoutError(serverType domain.ServerType, toolName string, timeout time.Duration) error {
	return domain.E(domain.CodeDeadlineExceeded, "pool.call",
		fmt.Sprintf("%s/%s timed out after %s", serverType, toolName, timeout), nil)
}

// Shutdown disconnects every cached client best-effort and stops the
// dispatcher. Errors during disconnect are logged, never returned. The
// pool remains usable: the next Call reinitializes it.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	stop := p.stop
	done := p.done
	p.running = false
	p.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("shutdown wait aborted", zap.Error(ctx.Err()))
	}
}

func (p *Pool) ensureRunning() (chan *callRequest, chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.requests = make(chan *callRequest)
		p.stop = make(chan struct{})
		p.done = make(chan struct{})
		p.running = true
		go p.run(p.requests, p.stop, p.done)
		p.logger.Debug("dispatcher started")
	}
	return p.requests, p.done
}

// run is the dispatcher loop. It owns the actor map; actors own clients.
func (p *Pool) run(requests chan *callRequest, stop, done chan struct{}) {
	actors := make(map[domain.ServerType]*serverActor)

	for {
		select {
		case <-stop:
			shutdownCtx, cancel := context.WithTimeout(context.Background(), p.shutdownTimeout)
			for _, actor := range actors {
				actor.halt()
			}
			for _, actor := range actors {
				actor.await(shutdownCtx)
			}
			cancel()
			p.setClientCount(0)
			p.logger.Info("pool shut down",
				telemetry.EventField(telemetry.EventShutdown),
				zap.Int("actors", len(actors)),
			)
			close(done)
			return
		case req := <-requests:
			actor, ok := actors[req.req.ServerType]
			if !ok {
				actor = newServerActor(p, req.req.ServerType)
				actors[req.req.ServerType] = actor
				go actor.run()
			}
			actor.enqueue(req)
		}
	}
}

// ActiveClients reports the number of cached connected clients.
func (p *Pool) ActiveClients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientCount
}

func (p *Pool) addClientCount(delta int) {
	p.mu.Lock()
	p.clientCount += delta
	count := p.clientCount
	p.mu.Unlock()
	p.metrics.SetActiveClients(count)
}

func (p *Pool) setClientCount(count int) {
	p.mu.Lock()
	p.clientCount = count
	p.mu.Unlock()
	p.metrics.SetActiveClients(count)
}
