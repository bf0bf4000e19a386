// internal/domain/models/finance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger entry types and sources. Amounts are centavos (1/100 PHP).
const (
	EntryCredit = "credit"
	EntryDebit  = "debit"

	SourceReferral       = "referral"
	SourcePayout         = "payout"
	SourcePayoutReversal = "payout_reversal"
	SourceAdjustment     = "adjustment"
)

// LedgerEntry is one line of the financial ledger. The balance of a user is the
// sum of their credits minus the sum of their debits.
type LedgerEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	EntryType   string             `bson:"entry_type" json:"entry_type"`
	Amount      int64              `bson:"amount" json:"amount"`
	Source      string             `bson:"source" json:"source"`
	ReferenceID primitive.ObjectID `bson:"reference_id,omitempty" json:"reference_id,omitempty"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Payout status values.
const (
	PayoutPending   = "pending"
	PayoutApproved  = "approved"
	PayoutRejected  = "rejected"
	PayoutProcessed = "processed"
	PayoutCancelled = "cancelled"
)

// Payout methods.
const (
	MethodGCash        = "gcash"
	MethodBankTransfer = "bank_transfer"
	MethodPayPal       = "paypal"
)

// PayoutRequest asks for part of the ledger balance to be paid out.
type PayoutRequest struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Amount         int64               `bson:"amount" json:"amount"`
	Method         string              `bson:"method" json:"method"`
	AccountDetails string              `bson:"account_details" json:"account_details"`
	Status         string              `bson:"status" json:"status"`
	ReviewerID     *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	Reason         string              `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsValidPayoutMethod reports whether m is a supported payout method.
func IsValidPayoutMethod(m string) bool {
	return m == MethodGCash || m == MethodBankTransfer || m == MethodPayPal
}

// Referral event types and statuses.
const (
	ReferralSignup     = "signup"
	ReferralConversion = "conversion"

	ReferralRecorded       = "recorded"
	ReferralFlagged        = "flagged"
	ReferralConfirmedFraud = "confirmed_fraud"
)

// ReferralEvent records a referred user signing up or converting to a paid plan.
type ReferralEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReferrerID primitive.ObjectID `bson:"referrer_id" json:"referrer_id"`
	ReferredID primitive.ObjectID `bson:"referred_id" json:"referred_id"`
	EventType  string             `bson:"event_type" json:"event_type"`
	Commission int64              `bson:"commission" json:"commission"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
