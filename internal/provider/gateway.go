package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GatewayConfig tunes retry and timeout behavior for model calls.
type GatewayConfig struct {
	MaxRetries  int           // additional attempts after the first
	RetryDelay  time.Duration // base delay, doubled per retry
	CallTimeout time.Duration // per-call budget
}

// DefaultGatewayConfig returns sane defaults for the gateway.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxRetries:  2,
		RetryDelay:  500 * time.Millisecond,
		CallTimeout: 30 * time.Second,
	}
}

// Gateway wraps the provider router with per-call timeouts and bounded
// retries. Transient failures (timeouts, rate limits, server errors) are
// retried with exponential backoff; malformed responses are surfaced
// immediately. All failures come back as a *GenerationError.
type Gateway struct {
	router *Router
	cfg    GatewayConfig
	logger *zap.Logger
}

// NewGateway creates a gateway over the given router.
func NewGateway(router *Router, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	return &Gateway{router: router, cfg: cfg, logger: logger}
}

// Complete sends a chat request, retrying transient failures up to the
// configured cap. The caller's context cancels the whole sequence.
func (g *Gateway) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	chain := g.router.Chain()
	if len(chain) == 0 {
		return nil, &GenerationError{Kind: GenerationMalformed, Err: ErrNoProvider}
	}

	var lastErr *GenerationError
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.cfg.RetryDelay * time.Duration(1<<(attempt-1)) // exponential backoff
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gateway: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		for _, p := range chain {
			callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
			resp, err := p.Chat(callCtx, req)
			cancel()
			if err == nil {
				return resp, nil
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("gateway: %w", ctx.Err())
			}

			genErr := classifyError(err)
			if genErr.Kind == GenerationMalformed {
				g.logger.Warn("malformed provider response",
					zap.String("provider", p.ID()), zap.Error(err))
				return nil, genErr
			}
			lastErr = genErr
			g.logger.Warn("provider call failed",
				zap.String("provider", p.ID()),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
	}
	return nil, lastErr
}
