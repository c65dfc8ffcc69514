package models

// Risk is the tier assigned to a transfer by fraud evaluation.
type Risk string

const (
	RiskLow  Risk = "LOW"
	RiskHigh Risk = "HIGH"
)

// RiskAssessment is the outcome of evaluating a transfer for fraud.
type RiskAssessment struct {
	Risk  Risk `json:"risk"`
	Score int  `json:"score"`
}
