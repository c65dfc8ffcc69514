package models

import "github.com/shopspring/decimal"

// Command represents an intent to transfer money between two accounts.
// ID identifies the command itself; TransactionID identifies the business
// transaction the command starts. Commands are produced once by the ingress
// API and never mutated.
type Command struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transactionId"`
	UserID        string         `json:"userId"`
	Payload       CommandPayload `json:"payload"`
}

// CommandPayload carries the transfer details.
type CommandPayload struct {
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}
