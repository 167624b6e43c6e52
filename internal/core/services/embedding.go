package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// EmbedResult is the outcome for one input text.
type EmbedResult struct {
	// Vector is nil when Err is set.
	Vector []float32

	// Err explains why the text has no vector.
	Err error
}

// EmbeddingOrchestrator batches, caches, rate-limits and retries calls to an
// embedding provider. Failures are confined to the texts they affect.
type EmbeddingOrchestrator struct {
	service driven.EmbeddingService
	cache   driven.EmbeddingCache
	retry   *RetryPolicy
	workers int
}

// NewEmbeddingOrchestrator creates an orchestrator.
// service may be nil, in which case every call fails with ErrEmbeddingUnavailable.
// cache may be nil to disable caching.
func NewEmbeddingOrchestrator(
	service driven.EmbeddingService,
	cache driven.EmbeddingCache,
	retry *RetryPolicy,
	settings domain.EmbeddingSettings,
) *EmbeddingOrchestrator {
	if retry == nil {
		retry = NewRetryPolicy(domain.DefaultAppSettings().Retry)
	}

	limit := rate.Inf
	if settings.RequestsPerSecond > 0 {
		limit = rate.Limit(settings.RequestsPerSecond)
	}
	burst := settings.Burst
	if burst < 1 {
		burst = 1
	}
	workers := settings.Workers
	if workers < 1 {
		workers = 1
	}

	limiter := rate.NewLimiter(limit, burst)
	return &EmbeddingOrchestrator{
		service: service,
		cache:   cache,
		retry:   retry.WithPacer(limiter.Wait),
		workers: workers,
	}
}

// Available reports whether an embedding provider is configured.
func (o *EmbeddingOrchestrator) Available() bool {
	return o != nil && o.service != nil
}

// ModelName returns the provider model, empty when unavailable.
func (o *EmbeddingOrchestrator) ModelName() string {
	if !o.Available() {
		return ""
	}
	return o.service.ModelName()
}

// Embed returns the vector for a single text.
func (o *EmbeddingOrchestrator) Embed(ctx context.Context, text string) ([]float32, error) {
	res := o.EmbedBatch(ctx, []string{text})
	return res[0].Vector, res[0].Err
}

// EmbedBatch returns one result per input, in input order.
// Identical texts are embedded once. Cached texts skip the provider. The
// remaining texts are sent as one batch request; if it fails, each text is
// retried on its own so one bad input cannot fail the others.
func (o *EmbeddingOrchestrator) EmbedBatch(ctx context.Context, texts []string) []EmbedResult {
	results := make([]EmbedResult, len(texts))
	if len(texts) == 0 {
		return results
	}
	if !o.Available() {
		for i := range results {
			results[i].Err = domain.ErrEmbeddingUnavailable
		}
		return results
	}

	// Group positions by text so duplicates share one provider call.
	positions := make(map[string][]int, len(texts))
	unique := make([]string, 0, len(texts))
	for i, t := range texts {
		if _, seen := positions[t]; !seen {
			unique = append(unique, t)
		}
		positions[t] = append(positions[t], i)
	}

	resolved := make(map[string]EmbedResult, len(unique))
	var pending []string
	for _, t := range unique {
		if vec, ok := o.cacheGet(t); ok {
			resolved[t] = EmbedResult{Vector: vec}
			continue
		}
		pending = append(pending, t)
	}
	logger.Debug("embed batch: %d texts, %d unique, %d cached", len(texts), len(unique), len(unique)-len(pending))

	if len(pending) > 0 {
		for t, r := range o.embedPending(ctx, pending) {
			resolved[t] = r
		}
	}

	for t, idxs := range positions {
		r := resolved[t]
		for _, i := range idxs {
			results[i] = r
		}
	}
	return results
}

func (o *EmbeddingOrchestrator) embedPending(ctx context.Context, texts []string) map[string]EmbedResult {
	out := make(map[string]EmbedResult, len(texts))

	vectors, err := o.batchCall(ctx, texts)
	if err == nil {
		for i, t := range texts {
			out[t] = o.accept(t, vectors[i])
		}
		return out
	}
	if ctx.Err() != nil {
		for _, t := range texts {
			out[t] = EmbedResult{Err: ctx.Err()}
		}
		return out
	}
	logger.Warn("batch embedding of %d texts failed, falling back to single calls: %v", len(texts), err)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.workers)
	)
	for _, t := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			out[t] = EmbedResult{Err: ctx.Err()}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			defer func() { <-sem }()

			r := o.singleCall(ctx, text)
			mu.Lock()
			out[text] = r
			mu.Unlock()
		}(t)
	}
	wg.Wait()
	return out
}

// batchCall makes one attempt; the per-text fallback does the retrying.
func (o *EmbeddingOrchestrator) batchCall(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := o.retry.Once(ctx, "embed batch", func(ctx context.Context) error {
		v, err := o.service.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return fmt.Errorf("provider returned %d vectors for %d texts", len(v), len(texts))
		}
		vectors = v
		return nil
	})
	return vectors, err
}

func (o *EmbeddingOrchestrator) singleCall(ctx context.Context, text string) EmbedResult {
	vec, err := retryValue(ctx, o.retry, "embed", func(ctx context.Context) ([]float32, error) {
		return o.service.Embed(ctx, text)
	})
	if err != nil {
		return EmbedResult{Err: err}
	}
	return o.accept(text, vec)
}

// accept checks the vector shape and caches it.
func (o *EmbeddingOrchestrator) accept(text string, vec []float32) EmbedResult {
	if len(vec) == 0 {
		return EmbedResult{Err: errors.New("provider returned an empty vector")}
	}
	if want := o.service.Dimensions(); want > 0 && len(vec) != want {
		return EmbedResult{Err: fmt.Errorf("vector has %d dimensions, model %s produces %d",
			len(vec), o.service.ModelName(), want)}
	}
	if o.cache != nil {
		o.cache.Set(o.cacheKey(text), vec)
	}
	return EmbedResult{Vector: vec}
}

func (o *EmbeddingOrchestrator) cacheGet(text string) ([]float32, bool) {
	if o.cache == nil {
		return nil, false
	}
	return o.cache.Get(o.cacheKey(text))
}

// cacheKey hashes model and text so switching models never serves stale vectors.
func (o *EmbeddingOrchestrator) cacheKey(text string) string {
	return EmbeddingCacheKey(o.service.ModelName(), text)
}

// EmbeddingCacheKey returns the content hash used to cache a vector.
func EmbeddingCacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
