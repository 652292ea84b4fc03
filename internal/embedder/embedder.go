// Package embedder defines the embedding-callback boundary the Storage
// Engine calls out to: a plain function from text to a fixed-width
// vector, supplied by whatever model-loading code sits outside memoryd.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"golang.org/x/time/rate"

	"github.com/memkit/memoryd/internal/errs"
)

// Func embeds one piece of text under a caller-chosen model name. It
// must be deterministic per (model, text): the Storage Engine treats
// its output opaquely and never inspects the model string itself.
type Func func(ctx context.Context, model, text string) ([]float32, error)

// Throttled wraps an embedding Func with a token-bucket rate limiter so
// a burst of captures cannot overrun a slow backend. A throttled call
// blocks until a token is available; if ctx ends first, or its deadline
// is too near to wait, the call fails with a Timeout error and fn is not
// called. A failed call is not retried.
func Throttled(fn Func, limiter *rate.Limiter) Func {
	return func(ctx context.Context, model, text string) ([]float32, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.Timeout, "embedder.throttled", "embedding rate limiter wait failed", err)
		}
		return fn(ctx, model, text)
	}
}

// NewLimiter constructs the token bucket backing Throttled: ratePerSec
// tokens refill per second, burst tokens may be spent immediately.
func NewLimiter(ratePerSec float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(ratePerSec), burst)
}

// Deterministic returns a Func suitable for tests and local development:
// it hashes (model, text) with SHA-256 and expands the digest into a
// unit-norm vector of the requested dimension, making no network calls
// and no claim to semantic usefulness.
func Deterministic(dim int) Func {
	return func(ctx context.Context, model, text string) ([]float32, error) {
		if dim <= 0 {
			return nil, errs.New(errs.Validation, "embedder.deterministic", "dimension must be positive")
		}
		h := sha256.Sum256([]byte(model + "\x00" + text))
		vec := make([]float32, dim)
		var sumSq float64
		for i := range vec {
			seed := binary.BigEndian.Uint32(extendDigest(h[:], i))
			// Map to [-1, 1).
			v := float32(seed)/float32(1<<31) - 1
			vec[i] = v
			sumSq += float64(v) * float64(v)
		}
		if sumSq > 0 {
			norm := float32(math.Sqrt(sumSq))
			for i := range vec {
				vec[i] /= norm
			}
		}
		return vec, nil
	}
}

// extendDigest derives 4 bytes for dimension index i by rehashing the
// digest concatenated with i, so dim can exceed the digest's 32 bytes.
func extendDigest(digest []byte, i int) []byte {
	buf := make([]byte, len(digest)+4)
	copy(buf, digest)
	binary.BigEndian.PutUint32(buf[len(digest):], uint32(i))
	sum := sha256.Sum256(buf)
	return sum[:4]
}
