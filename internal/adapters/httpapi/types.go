package httpapi

import (
	"time"

	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/domain"
)

type turnRequest struct {
	AccountID string `json:"account_id"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type usageJSON struct {
	InputTokens       int64 `json:"input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	Total             int64 `json:"total"`
}

type turnResponse struct {
	Outcome   string     `json:"outcome"`
	TurnID    uint64     `json:"turn_id,omitempty"`
	Response  string     `json:"response,omitempty"`
	Layers    []string   `json:"layers,omitempty"`
	Usage     *usageJSON `json:"usage,omitempty"`
	Period    string     `json:"period,omitempty"`
	Remaining int64      `json:"remaining"`
	Reason    string     `json:"reason,omitempty"`
	Flagged   bool       `json:"flagged,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type usageResponse struct {
	AccountID   string    `json:"account_id"`
	Period      string    `json:"period"`
	Consumed    int64     `json:"consumed"`
	Limit       int64     `json:"limit"`
	Remaining   int64     `json:"remaining"`
	PercentUsed float64   `json:"percent_used"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTurnResponse(result domain.TurnResult) turnResponse {
	resp := turnResponse{
		Outcome:   string(result.Outcome),
		TurnID:    result.TurnID,
		Period:    result.Decision.PeriodKey,
		Remaining: result.Decision.Remaining,
		Reason:    string(result.Decision.Reason),
		Flagged:   result.Flagged,
	}

	if result.Outcome == domain.TurnOutcomeOK {
		resp.Response = result.Response
		resp.Layers = result.LayerIDs
		resp.Usage = &usageJSON{
			InputTokens:       result.Usage.InputTokens,
			OutputTokens:      result.Usage.OutputTokens,
			CachedInputTokens: result.Usage.CachedInputTokens,
			Total:             result.Usage.BlendedTotal(),
		}
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	return resp
}

func toUsageResponse(status application.UsageStatus) usageResponse {
	record := status.Record
	return usageResponse{
		AccountID:   string(record.AccountID),
		Period:      record.PeriodKey,
		Consumed:    record.TokensConsumed,
		Limit:       record.Limit,
		Remaining:   record.Remaining(),
		PercentUsed: record.PercentUsed(),
		UpdatedAt:   record.UpdatedAt,
	}
}
