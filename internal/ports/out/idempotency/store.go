package idempotency

import (
	"context"
	"time"

	"github.com/fivesquad/pickup-planner-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + player + route + request body hash. Route is the HTTP method plus
// the normalized path template (e.g. "POST /calls").
type Fingerprint struct {
	Key      Key
	Player   domain.PlayerID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
