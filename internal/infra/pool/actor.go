package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"toolgate/internal/domain"
	"toolgate/internal/infra/telemetry"
)

// serverActor serializes calls to one server type and owns its cached
// client. FIFO order follows enqueue order.
type serverActor struct {
	pool       *Pool
	serverType domain.ServerType
	logger     *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*callRequest
	stopped bool

	client domain.ToolClient
	done   chan struct{}
}

func newServerActor(p *Pool, serverType domain.ServerType) *serverActor {
	a := &serverActor{
		pool:       p,
		serverType: serverType,
		logger:     p.logger.Named(string(serverType)),
		done:       make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

func (a *serverActor) enqueue(req *callRequest) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		req.respCh <- callResponse{err: domain.E(domain.CodeUnavailable, "pool.call", "pool is shutting down", nil)}
		return
	}
	a.queue = append(a.queue, req)
	a.mu.Unlock()
	a.cond.Signal()
}

func (a *serverActor) halt() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	a.cond.Signal()
}

func (a *serverActor) await(ctx context.Context) {
	select {
	case <-a.done:
	case <-ctx.Done():
	}
}

func (a *serverActor) next() (*callRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.queue) == 0 && !a.stopped {
		a.cond.Wait()
	}
	if a.stopped {
		for _, pending := range a.queue {
			pending.respCh <- callResponse{err: domain.E(domain.CodeUnavailable, "pool.call", "pool is shutting down", nil)}
		}
		a.queue = nil
		return nil, false
	}
	req := a.queue[0]
	a.queue = a.queue[1:]
	return req, true
}

func (a *serverActor) run() {
	for {
		req, ok := a.next()
		if !ok {
			break
		}
		resp := a.execute(req)
		req.respCh <- resp
	}
	a.teardown()
	close(a.done)
}

// execute performs one call with connection reuse and a single reconnect
// retry on connection-class failures. The operation is detached from the
// caller's cancelation: an abandoned caller does not interrupt it.
func (a *serverActor) execute(req *callRequest) callResponse {
	ctx := context.WithoutCancel(req.ctx)
	logger := telemetry.LoggerWithRequest(ctx, a.logger)
	started := time.Now()

	result, err := a.attempt(ctx, req.req)
	if err != nil && domain.IsConnectionError(err) {
		logger.Warn("connection failed, reconnecting",
			telemetry.EventField(telemetry.EventReconnect),
			telemetry.ServerTypeField(a.serverType),
			telemetry.ToolNameField(req.req.ToolName),
			zap.Error(err),
		)
		a.dropClient(ctx)
		a.pool.metrics.ObserveReconnect(a.serverType)
		result, err = a.attempt(ctx, req.req)
	}

	duration := time.Since(started)
	a.observe(ctx, req.req, result, err, duration)

	if err != nil {
		logger.Error("call failed",
			telemetry.EventField(telemetry.EventCallFailure),
			telemetry.ServerTypeField(a.serverType),
			telemetry.ToolNameField(req.req.ToolName),
			telemetry.DurationField(duration),
			zap.Error(err),
		)
		return callResponse{err: err}
	}
	return callResponse{result: result}
}

// attempt fetches the cached client (connecting a fresh one if needed)
// and invokes the tool. A cached client that reports itself disconnected
// is replaced rather than returned stale.
func (a *serverActor) attempt(ctx context.Context, req domain.ToolRequest) (domain.ToolResult, error) {
	client, err := a.ensureClient(ctx)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return client.CallTool(ctx, req.ToolName, req.Args)
}

func (a *serverActor) ensureClient(ctx context.Context) (domain.ToolClient, error) {
	if a.client != nil && a.client.IsConnected() {
		return a.client, nil
	}
	if a.client != nil {
		a.dropClient(ctx)
	}

	client, err := a.pool.factory.New(a.serverType)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "pool.connect", "", err)
	}

	started := time.Now()
	err = client.Connect(ctx)
	a.pool.metrics.ObserveConnect(a.serverType, time.Since(started), err)
	if err != nil {
		a.logger.Error("connect failed",
			telemetry.EventField(telemetry.EventConnectFailure),
			telemetry.ServerTypeField(a.serverType),
			telemetry.DurationField(time.Since(started)),
			zap.Error(err),
		)
		if domain.IsConnectionError(err) {
			return nil, err
		}
		return nil, domain.NewConnectionError(a.serverType, err)
	}

	a.client = client
	a.pool.addClientCount(1)
	a.logger.Info("connected",
		telemetry.EventField(telemetry.EventConnectSuccess),
		telemetry.ServerTypeField(a.serverType),
		telemetry.DurationField(time.Since(started)),
	)
	return client, nil
}

// dropClient disconnects and forgets the cached client. Secondary errors
// are logged and ignored.
func (a *serverActor) dropClient(ctx context.Context) {
	if a.client == nil {
		return
	}
	if err := a.client.Disconnect(ctx); err != nil {
		a.logger.Debug("disconnect error ignored",
			telemetry.EventField(telemetry.EventDisconnect),
			telemetry.ServerTypeField(a.serverType),
			zap.Error(err),
		)
	}
	a.client = nil
	a.pool.addClientCount(-1)
}

func (a *serverActor) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.pool.shutdownTimeout)
	defer cancel()
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			a.logger.Warn("disconnect failed during shutdown",
				telemetry.EventField(telemetry.EventDisconnect),
				telemetry.ServerTypeField(a.serverType),
				zap.Error(err),
			)
		} else {
			a.logger.Info("disconnected",
				telemetry.EventField(telemetry.EventDisconnect),
				telemetry.ServerTypeField(a.serverType),
			)
		}
		a.client = nil
	}
}

func (a *serverActor) observe(ctx context.Context, req domain.ToolRequest, result domain.ToolResult, err error, duration time.Duration) {
	status := domain.CallStatusSuccess
	errorMessage := ""
	switch {
	case err != nil:
		status = domain.CallStatusConnError
		errorMessage = err.Error()
	case result.IsError:
		status = domain.CallStatusToolError
		errorMessage = result.ErrorMessage
	}

	a.pool.metrics.ObserveCall(domain.CallMetric{
		ServerType: a.serverType,
		ToolName:   req.ToolName,
		Status:     status,
		Duration:   duration,
	})

	if a.pool.journal == nil {
		return
	}
	id := ""
	if meta, ok := telemetry.RequestMetaFromContext(ctx); ok {
		id = meta.RequestID
	}
	a.pool.journal.Record(domain.CallRecord{
		ID:           id,
		ServerType:   a.serverType,
		ToolName:     req.ToolName,
		DurationMs:   duration.Milliseconds(),
		IsError:      status != domain.CallStatusSuccess,
		ErrorMessage: errorMessage,
		At:           time.Now().UTC(),
	})
}
