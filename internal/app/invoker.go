package app

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"toolgate/internal/domain"
	"toolgate/internal/infra/fallback"
)

// Invoker runs the bounded retry loop over the fallback manager: pick a
// model, invoke, on error ask the manager whether another model is worth
// trying. Attempts are bounded by chain length; the manager itself never
// retries.
type Invoker struct {
	manager *fallback.Manager
	logger  *zap.Logger
}

func NewInvoker(manager *fallback.Manager, logger *zap.Logger) *Invoker {
	if manager == nil {
		panic("app.NewInvoker requires a fallback manager")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		manager: manager,
		logger:  logger.Named("invoker"),
	}
}

// Invoke generates a completion, failing over across the chain on
// transient provider errors. The returned error names the last attempted
// model and wraps the underlying cause.
func (i *Invoker) Invoke(ctx context.Context, messages []*schema.Message) (*schema.Message, domain.ModelConfig, error) {
	maxAttempts := i.manager.Status().ChainLength
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	var lastConfig domain.ModelConfig

	for attempt := 0; attempt < maxAttempts; attempt++ {
		chatModel, config, err := i.manager.GetModel(ctx)
		if err != nil {
			return nil, config, err
		}

		response, err := chatModel.Generate(ctx, messages)
		if err == nil {
			return response, config, nil
		}

		lastErr = err
		lastConfig = config
		if !i.manager.HandleError(err) {
			break
		}
		i.logger.Info("retrying with fallback model",
			zap.String("failed", config.Description),
			zap.Error(err),
		)
	}

	return nil, lastConfig, domain.E(domain.CodeUnavailable, "invoker.invoke",
		fmt.Sprintf("completion failed on %s: %v", lastConfig.Description, lastErr), lastErr)
}
