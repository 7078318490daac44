package models

import "time"

// TransactionType classifies entries in the points ledger.
type TransactionType string

const (
	TransactionEarned   TransactionType = "earned"
	TransactionRedeemed TransactionType = "redeemed"
	TransactionBonus    TransactionType = "bonus"
	TransactionPenalty  TransactionType = "penalty"
)

// RedeemRequest asks to buy a listing outright with points.
type RedeemRequest struct {
	ItemID string `json:"item_id" validate:"required"`
}

// PointsTransaction is one entry in a user's points ledger. Amount is
// negative for debits.
type PointsTransaction struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	Type          TransactionType `db:"type" json:"type"`
	Amount        int             `db:"amount" json:"amount"`
	Description   string          `db:"description" json:"description"`
	RelatedItemID *string         `db:"related_item_id" json:"related_item_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
