package embed

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

// Client is the embedding surface the Batcher drives. *Gemini satisfies it.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Policy controls how the Batcher slices and paces its API calls.
type Policy struct {
	// BatchSize is the number of texts per API call.
	BatchSize int

	// InterBatchDelay is the minimum spacing between batch calls.
	InterBatchDelay time.Duration

	// MaxAttempts is the total number of tries per batch, including the
	// first one.
	MaxAttempts int

	// RetryBackoff is the pause before a retry.
	RetryBackoff time.Duration

	// PerCallTimeout bounds a single API call.
	PerCallTimeout time.Duration
}

// DefaultPolicy returns the policy tuned for the Gemini free-tier quotas.
func DefaultPolicy() Policy {
	return Policy{
		BatchSize:       20,
		InterBatchDelay: time.Second,
		MaxAttempts:     2,
		RetryBackoff:    5 * time.Second,
		PerCallTimeout:  60 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.BatchSize <= 0 {
		p.BatchSize = def.BatchSize
	}
	if p.InterBatchDelay <= 0 {
		p.InterBatchDelay = def.InterBatchDelay
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = def.RetryBackoff
	}
	if p.PerCallTimeout <= 0 {
		p.PerCallTimeout = def.PerCallTimeout
	}
	return p
}

// Batcher embeds large text sets batch by batch, pacing calls and retrying
// transient failures. A batch that fails all attempts is dropped, not fatal:
// ingestion of a large corpus should survive individual quota hiccups.
type Batcher struct {
	client  Client
	policy  Policy
	limiter *rate.Limiter
	sleep   func(context.Context, time.Duration) error
	logger  log.Logger
}

// NewBatcher creates a Batcher. Zero policy fields fall back to DefaultPolicy.
func NewBatcher(client Client, policy Policy, logger log.Logger) *Batcher {
	p := policy.withDefaults()
	return &Batcher{
		client:  client,
		policy:  p,
		limiter: rate.NewLimiter(rate.Every(p.InterBatchDelay), 1),
		sleep:   sleepCtx,
		logger:  logger,
	}
}

// EmbedAll embeds texts in batches. The returned slice is parallel to texts;
// entries belonging to a batch that failed all attempts are nil, so callers
// can skip them without losing positional alignment. The error is non-nil
// only when the context ends; partial results accumulated so far are still
// returned with it.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += b.policy.BatchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return out, err
		}

		end := min(start+b.policy.BatchSize, len(texts))
		vecs, err := b.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			b.logger.Warn("dropping failed embedding batch",
				"start", start, "size", end-start, "error", err)
			continue
		}
		copy(out[start:end], vecs)
	}

	return out, nil
}

func (b *Batcher) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= b.policy.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, b.policy.PerCallTimeout)
		vecs, err := b.client.EmbedBatch(callCtx, texts)
		cancel()
		if err == nil {
			return vecs, nil
		}

		lastErr = err
		if attempt < b.policy.MaxAttempts {
			b.logger.Warn("embedding batch failed, retrying",
				"attempt", attempt, "backoff", b.policy.RetryBackoff, "error", err)
			if serr := b.sleep(ctx, b.policy.RetryBackoff); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
