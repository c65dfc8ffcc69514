package interfaces

import (
	"context"

	"github.com/sheikh-saqib/transfer-saga/internal/models"
)

// RiskEvaluator scores a transfer command for fraud. Implementations may
// call out to an external scoring service; the evaluation is the only
// blocking point of the saga.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, cmd models.Command) (models.RiskAssessment, error)
}
