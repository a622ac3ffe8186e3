package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/spf13/cobra"
)

var errTurnDenied = errors.New("turn denied")

type turnOutput struct {
	Outcome   domain.TurnOutcome `json:"outcome"`
	TurnID    uint64             `json:"turn_id"`
	Response  string             `json:"response,omitempty"`
	Layers    []string           `json:"layers,omitempty"`
	Tokens    int64              `json:"tokens"`
	Period    string             `json:"period,omitempty"`
	Remaining int64              `json:"remaining"`
	Reason    domain.DenyReason  `json:"reason,omitempty"`
	Flagged   bool               `json:"flagged,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func newTurnCmd(app *app) *cobra.Command {
	var accountID string
	var message string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Run one coaching turn for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(message) == "" {
				return errors.New("message must not be empty")
			}

			send := func(ctx context.Context) (domain.TurnResult, error) {
				return app.chat.Send(ctx, domain.AccountID(accountID), message)
			}

			var result domain.TurnResult
			var err error
			if asJSON {
				result, err = send(cmd.Context())
			} else {
				result, err = runTurnSpinner(cmd.Context(), cmd.ErrOrStderr(), send)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(toTurnOutput(result)); err != nil {
					return err
				}
			} else if result.Outcome == domain.TurnOutcomeOK {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Response)
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "turn %d: %d tokens, %d remaining in %s\n",
					result.TurnID, result.Usage.BlendedTotal(), remainingAfter(result), result.Decision.PeriodKey)
				if result.Flagged {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "warning: usage could not be recorded and was queued for reconciliation")
				}
			}

			return turnError(result)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&message, "message", "", "Message from the user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func toTurnOutput(result domain.TurnResult) turnOutput {
	out := turnOutput{
		Outcome:   result.Outcome,
		TurnID:    result.TurnID,
		Response:  result.Response,
		Layers:    result.LayerIDs,
		Tokens:    result.Usage.BlendedTotal(),
		Period:    result.Decision.PeriodKey,
		Remaining: remainingAfter(result),
		Reason:    result.Decision.Reason,
		Flagged:   result.Flagged,
	}
	if result.Err != nil {
		out.Error = result.Err.Error()
	}
	return out
}

// remainingAfter is the admission-time remaining budget minus what the turn
// consumed, floored at zero.
func remainingAfter(result domain.TurnResult) int64 {
	left := result.Decision.Remaining - result.Usage.BlendedTotal()
	if left < 0 {
		return 0
	}
	return left
}

func turnError(result domain.TurnResult) error {
	switch result.Outcome {
	case domain.TurnOutcomeOK:
		return nil
	case domain.TurnOutcomeDenied:
		if result.Err != nil {
			return fmt.Errorf("%w for account %s: %s: %w", errTurnDenied, result.Decision.AccountID, result.Decision.Reason, result.Err)
		}
		return fmt.Errorf("%w for account %s: %s in period %s", errTurnDenied, result.Decision.AccountID, result.Decision.Reason, result.Decision.PeriodKey)
	default:
		return result.Err
	}
}
