package ports

import (
	"context"

	"github.com/bnema/pairchat/internal/domain"
)

type ModelRequest struct {
	AccountID    domain.AccountID
	TurnID       uint64
	Instructions string
	Message      string
}

type ModelResponse struct {
	Text  string
	Usage domain.Usage
}

// ModelClient invokes the external model. Any error is treated as an opaque
// upstream failure.
type ModelClient interface {
	Complete(ctx context.Context, req ModelRequest) (ModelResponse, error)
}
