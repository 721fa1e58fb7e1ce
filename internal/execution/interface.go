package execution

import (
	"context"
	"errors"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
)

var (
	// ErrGatewayUnavailable is the synchronous refusal: the request never
	// reached the venue and no completion will arrive for it.
	ErrGatewayUnavailable = errors.New("execution gateway unavailable")

	// ErrRateLimited means the local token bucket is empty. Same contract
	// as unavailable: no completion will follow.
	ErrRateLimited = errors.New("execution gateway rate limited")
)

// CompletionSink receives asynchronous fill/reject completions. The gateway
// calls it from its own goroutines; the orchestrator routes each completion
// into the owning symbol worker's inbox.
type CompletionSink func(event.CompletionEvent)

// Gateway is the asynchronous order interface. Submit calls return nil once
// the request is accepted for processing; the outcome arrives later as a
// CompletionEvent correlated by request id. A non-nil error means the
// request was refused synchronously and must be unwound by the caller.
type Gateway interface {
	SubmitOpen(ctx context.Context, req domain.OrderRequest) error
	SubmitClose(ctx context.Context, req domain.OrderRequest) error
}
