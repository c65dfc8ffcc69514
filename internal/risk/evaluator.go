package risk

import (
	"context"
	"math/rand/v2"
	"time"

	interfaces "github.com/sheikh-saqib/transfer-saga/internal/interfaces"
	"github.com/sheikh-saqib/transfer-saga/internal/models"
)

// Threshold above which a fraud score is treated as HIGH risk.
const Threshold = 70

const (
	scoreHigh = 85
	scoreLow  = 25
)

// ScoreEvaluator is the default risk evaluator. It simulates an external
// fraud-scoring call with a fixed delay and assigns a random score: roughly
// 70% of transfers come back LOW. Real deployments swap in an evaluator
// backed by a scoring service.
type ScoreEvaluator struct {
	Delay    time.Duration
	HighRate float64 // fraction of transfers scored HIGH
}

func NewScoreEvaluator() *ScoreEvaluator {
	return &ScoreEvaluator{
		Delay:    time.Second,
		HighRate: 0.3,
	}
}

func (e *ScoreEvaluator) Evaluate(ctx context.Context, cmd models.Command) (models.RiskAssessment, error) {
	select {
	case <-ctx.Done():
		return models.RiskAssessment{}, ctx.Err()
	case <-time.After(e.Delay):
	}

	score := scoreLow
	if rand.Float64() < e.HighRate {
		score = scoreHigh
	}
	return Assess(score), nil
}

// Assess maps a scalar fraud score to a risk tier.
func Assess(score int) models.RiskAssessment {
	risk := models.RiskLow
	if score > Threshold {
		risk = models.RiskHigh
	}
	return models.RiskAssessment{Risk: risk, Score: score}
}

var _ interfaces.RiskEvaluator = (*ScoreEvaluator)(nil)
