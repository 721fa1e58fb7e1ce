package execution

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MuhammadAliAbid58/HFT-2/internal/domain"
	"github.com/MuhammadAliAbid58/HFT-2/internal/event"
	"github.com/MuhammadAliAbid58/HFT-2/pkg/quant"
)

// MockGateway fills every request synchronously at the requested price.
// Deterministic by construction, so worker tests can drive completions
// without sleeping. Behavior is steered per-call via RejectNext/FailNext.
type MockGateway struct {
	mu         sync.Mutex
	sink       CompletionSink
	submitted  []domain.OrderRequest
	RejectNext bool  // next completion is a reject
	FailNext   error // next submit fails synchronously with this error
}

func NewMockGateway(sink CompletionSink) *MockGateway {
	return &MockGateway{sink: sink}
}

func (m *MockGateway) SubmitOpen(ctx context.Context, req domain.OrderRequest) error {
	return m.submit(req)
}

func (m *MockGateway) SubmitClose(ctx context.Context, req domain.OrderRequest) error {
	return m.submit(req)
}

func (m *MockGateway) submit(req domain.OrderRequest) error {
	m.mu.Lock()
	if err := m.FailNext; err != nil {
		m.FailNext = nil
		m.mu.Unlock()
		return err
	}
	reject := m.RejectNext
	m.RejectNext = false
	m.submitted = append(m.submitted, req)
	m.mu.Unlock()

	slog.Debug("mock gateway submit",
		slog.String("symbol", req.Symbol),
		slog.String("intent", req.Intent.String()),
		slog.String("request_id", req.ID))

	c := event.CompletionEvent{
		RequestID:  req.ID,
		PositionID: req.PositionID,
		Intent:     req.Intent,
		Symbol:     req.Symbol,
		Status:     event.CompletionFill,
		Ts:         quant.Now(),
	}
	if reject {
		c.Status = event.CompletionReject
		c.Reason = "MOCK_REJECT"
	} else {
		c.PriceMicros = req.PriceMicros
	}
	m.sink(c)
	return nil
}

// Submitted returns a copy of every accepted request, in order.
func (m *MockGateway) Submitted() []domain.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OrderRequest, len(m.submitted))
	copy(out, m.submitted)
	return out
}
