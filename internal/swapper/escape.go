package swapper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// escapeTimeout bounds escape-hatch calls so a hung destination cannot
// tie up an admin request indefinitely.
const escapeTimeout = 30 * time.Second

// Execute is the administrator's escape hatch: it forwards an arbitrary
// request with an opaque payload to any destination and surfaces the
// destination's outcome as its own. It exists for recovering from
// integration failures nothing else anticipates, and is intentionally
// unconstrained; its use is logged loudly.
func (s *Service) Execute(ctx context.Context, caller, method, target string, payload []byte) (int, []byte, error) {
	// Only the admin check needs the lock. The outbound call touches no
	// service state and must not block deposits, swaps or withdrawals
	// while a slow destination answers.
	s.mu.Lock()
	err := s.requireAdmin(caller)
	s.mu.Unlock()
	if err != nil {
		return 0, nil, err
	}

	s.logger.Warn("Escape-hatch call",
		zap.String("caller", caller),
		zap.String("method", method),
		zap.String("target", target),
		zap.Int("payload_bytes", len(payload)),
	)

	req := s.escape.R().SetContext(ctx)
	if len(payload) > 0 {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		return 0, nil, fmt.Errorf("escape-hatch call failed: %w", err)
	}
	if resp.IsError() {
		return resp.StatusCode(), resp.Body(), fmt.Errorf("destination answered %s", resp.Status())
	}
	return resp.StatusCode(), resp.Body(), nil
}

func newEscapeClient() *resty.Client {
	return resty.New().SetTimeout(escapeTimeout)
}
