// Package llm is the control plane for all outbound model calls: response
// caching, cost capping, rate limiting, and bounded retry live here.
// Nothing else in the codebase talks to a model provider directly.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dealscope/dealscope/internal/cache"
	"github.com/dealscope/dealscope/internal/config"
	"github.com/dealscope/dealscope/internal/store"
	"github.com/dealscope/dealscope/pkg/models"
)

const maxAttempts = 3

// InvokeRequest carries one gateway invocation.
type InvokeRequest struct {
	Provider     string
	ModelID      string
	ModelVersion string
	Temperature  float64
	TopP         float64
	Prompt       string
	Content      string
	DealID       string
	TenantID     string
	AgentName    string
	ExecutionID  string
}

// InvokeResult is the structured outcome of an invocation. Degradation
// (cost cap reached) and exhausted retries are reported here, not as
// errors; the error return is reserved for infrastructure failures.
type InvokeResult struct {
	Success         bool             `json:"success"`
	Response        string           `json:"response,omitempty"`
	CacheHit        bool             `json:"cache_hit"`
	RetryCount      int              `json:"retry_count"`
	DegradationMode bool             `json:"degradation_mode"`
	Message         string           `json:"message,omitempty"`
	Cost            *models.CostInfo `json:"cost,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// Gateway gates all outbound model calls.
type Gateway struct {
	providers       map[string]models.ModelProvider
	defaultProvider string
	store           store.Store
	cache           cache.Cache

	dealCostCap     float64
	minuteCostCap   float64
	rateLimitPerMin int
	cacheTTL        time.Duration

	now    func() time.Time
	sleep  func(time.Duration)
	jitter func() time.Duration
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides the gateway's clock. Used by tests.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithSleep overrides the backoff sleep. Used by tests.
func WithSleep(sleep func(time.Duration)) GatewayOption {
	return func(g *Gateway) { g.sleep = sleep }
}

// WithJitter overrides the backoff jitter source. Used by tests.
func WithJitter(jitter func() time.Duration) GatewayOption {
	return func(g *Gateway) { g.jitter = jitter }
}

// NewGateway creates a Gateway over the given providers. The default
// provider is used when a request does not name one.
func NewGateway(st store.Store, ca cache.Cache, providers map[string]models.ModelProvider,
	defaultProvider string, cfg config.LLMConfig, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		providers:       providers,
		defaultProvider: defaultProvider,
		store:           st,
		cache:           ca,
		dealCostCap:     cfg.DealCostCap,
		minuteCostCap:   cfg.MinuteCostCap,
		rateLimitPerMin: cfg.RateLimitPerMin,
		cacheTTL:        cfg.CacheTTL,
		now:             func() time.Time { return time.Now().UTC() },
		sleep:           time.Sleep,
		jitter:          func() time.Duration { return time.Duration(rand.Int63n(int64(time.Second))) },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke runs one model call through the full control plane: cache check,
// cost caps, per-attempt rate limiting, and jittered exponential backoff.
func (g *Gateway) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}

	// Step 1: cache. A hit is returned as-is; no retry, rate limiting, or
	// cost accounting applies to cached responses.
	key, promptHash, contentHash := CacheKey(req.ModelID, req.ModelVersion,
		req.Temperature, req.TopP, req.Prompt, req.Content)
	if cached, hit := g.readCache(ctx, key); hit {
		slog.Info("llm cache hit",
			"model_id", req.ModelID, "prompt_hash", promptHash[:12], "content_hash", contentHash[:12])
		return &InvokeResult{
			Success:  true,
			Response: cached.Text,
			CacheHit: true,
			Cost:     &models.CostInfo{},
		}, nil
	}

	// Step 2: cost caps. The per-deal cap flips the deal into draft; the
	// per-minute cap is a global spend-rate guard and flips nothing.
	if req.DealID != "" {
		spent, err := g.store.SumCostForDeal(ctx, req.DealID)
		if err != nil {
			return nil, fmt.Errorf("check deal cost cap: %w", err)
		}
		if spent >= g.dealCostCap {
			if err := g.store.SetDealDraftStatus(ctx, req.DealID); err != nil {
				slog.Error("failed to flip deal to draft", "deal_id", req.DealID, "error", err)
			}
			return &InvokeResult{
				DegradationMode: true,
				Message: fmt.Sprintf("AI analysis paused for this deal: $%.2f of the $%.2f budget has been spent.",
					spent, g.dealCostCap),
			}, nil
		}
	}
	if g.minuteCostCap > 0 {
		recent, err := g.store.SumCostSince(ctx, g.now().Add(-time.Minute))
		if err != nil {
			return nil, fmt.Errorf("check per-minute cost cap: %w", err)
		}
		if recent >= g.minuteCostCap {
			return &InvokeResult{
				DegradationMode: true,
				Message: fmt.Sprintf("AI analysis briefly paused: $%.2f spent in the last minute against a $%.2f/min cap.",
					recent, g.minuteCostCap),
			}, nil
		}
	}

	// Steps 3+4: per-attempt rate-limit check, then the call, with
	// jittered exponential backoff between attempts.
	var (
		resp    models.ModelResponse
		callErr error
		retries int
		done    bool
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if g.rateLimitFull(ctx, providerName, req.ModelID) {
			slog.Warn("llm rate limit window full",
				"provider", providerName, "model_id", req.ModelID, "attempt", attempt)
			callErr = ErrRateLimited
			if attempt < maxAttempts {
				g.backoff(attempt)
				retries++
			}
			continue
		}

		resp, callErr = provider.Complete(ctx, models.ModelRequest{
			ModelID:      req.ModelID,
			ModelVersion: req.ModelVersion,
			Temperature:  req.Temperature,
			TopP:         req.TopP,
			Prompt:       req.Prompt,
			Content:      req.Content,
		})
		if callErr == nil {
			done = true
			break
		}
		if !isRetryable(callErr) {
			return &InvokeResult{RetryCount: retries, Error: callErr.Error()}, nil
		}
		slog.Warn("llm call failed, will retry",
			"provider", providerName, "model_id", req.ModelID, "attempt", attempt, "error", callErr)
		if attempt < maxAttempts {
			g.backoff(attempt)
			retries++
		}
	}
	if !done {
		return &InvokeResult{RetryCount: retries, Error: callErr.Error()}, nil
	}

	// Step 5: success side effects, cache entry and cost record.
	g.writeCache(ctx, key, resp)

	cost := EstimateCost(req.ModelID, resp.PromptTokens, resp.CompletionTokens)
	rec := &models.CostRecord{
		ID:          uuid.New(),
		DealID:      req.DealID,
		TenantID:    req.TenantID,
		ExecutionID: req.ExecutionID,
		ModelID:     req.ModelID,
		AgentName:   req.AgentName,
		Cost:        cost,
		CreatedAt:   g.now(),
	}
	if err := g.store.CreateCostRecord(ctx, rec); err != nil {
		// The call already happened; surface the accounting failure but
		// do not fail the invocation.
		slog.Error("failed to record llm cost", "model_id", req.ModelID, "error", err)
	}

	return &InvokeResult{
		Success:    true,
		Response:   resp.Text,
		RetryCount: retries,
		Cost: &models.CostInfo{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			Cost:             cost,
		},
	}, nil
}

func (g *Gateway) readCache(ctx context.Context, key string) (models.ModelResponse, bool) {
	raw, found, err := g.cache.Get(ctx, cache.LLMResponseKey(key))
	if err != nil {
		// Fail open: a cache outage degrades to a normal model call.
		slog.Warn("llm cache read failed", "error", err)
		return models.ModelResponse{}, false
	}
	if !found {
		return models.ModelResponse{}, false
	}
	var resp models.ModelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("llm cache entry corrupt, ignoring", "error", err)
		return models.ModelResponse{}, false
	}
	return resp, true
}

func (g *Gateway) writeCache(ctx context.Context, key string, resp models.ModelResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("llm cache marshal failed", "error", err)
		return
	}
	if err := g.cache.Set(ctx, cache.LLMResponseKey(key), raw, g.cacheTTL); err != nil {
		slog.Warn("llm cache write failed", "error", err)
	}
}

// rateLimitFull reports whether the provider:model bucket is over its
// ceiling for the current 60-second window. Fails open on cache errors.
func (g *Gateway) rateLimitFull(ctx context.Context, provider, modelID string) bool {
	count, err := g.cache.IncrWithExpiry(ctx, cache.ModelRateLimitKey(provider, modelID), time.Minute)
	if err != nil {
		slog.Warn("llm rate limit check failed, allowing call", "error", err)
		return false
	}
	return count > int64(g.rateLimitPerMin)
}

// backoff sleeps 2^attempt seconds plus up to one second of jitter.
func (g *Gateway) backoff(attempt int) {
	g.sleep(time.Duration(1<<attempt)*time.Second + g.jitter())
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrProviderUnavailable):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}
