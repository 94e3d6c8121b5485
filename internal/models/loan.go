// Package models defines the data structures for the financing engine.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStatus represents the status of a financing application.
type ApplicationStatus string

const (
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusDisbursed ApplicationStatus = "DISBURSED"
)

// RepaymentStatus represents whether an installment plan has been settled.
type RepaymentStatus string

const (
	RepaymentStatusUnpaid RepaymentStatus = "Unpaid"
	RepaymentStatusPaid   RepaymentStatus = "Paid"
)

// RepaymentBehavior records how a settled plan was repaid.
type RepaymentBehavior string

const (
	RepaymentBehaviorOnTime RepaymentBehavior = "ON_TIME"
	RepaymentBehaviorLate   RepaymentBehavior = "LATE"
	RepaymentBehaviorEarly  RepaymentBehavior = "EARLY"
)

// LoanApplication is the financing record created for an order.
type LoanApplication struct {
	ID         string            `json:"id" db:"id"`
	BorrowerID string            `json:"borrower_id" db:"borrower_id"`
	ProductID  string            `json:"product_id" db:"product_id"`
	LoanAmount decimal.Decimal   `json:"loan_amount" db:"loan_amount"`
	Status     ApplicationStatus `json:"status" db:"status"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// Loan is an installment plan disbursed against an application.
type Loan struct {
	ID                string             `json:"id" db:"id"`
	BorrowerID        string             `json:"borrower_id" db:"borrower_id"`
	ProductID         string             `json:"product_id" db:"product_id"`
	LoanApplicationID string             `json:"loan_application_id" db:"loan_application_id"`
	LoanAmount        decimal.Decimal    `json:"loan_amount" db:"loan_amount"`
	DisbursedDate     time.Time          `json:"disbursed_date" db:"disbursed_date"`
	DueDate           time.Time          `json:"due_date" db:"due_date"`
	ServiceFee        decimal.Decimal    `json:"service_fee" db:"service_fee"`
	PenaltyAmount     decimal.Decimal    `json:"penalty_amount" db:"penalty_amount"`
	RepaymentStatus   RepaymentStatus    `json:"repayment_status" db:"repayment_status"`
	RepaidAmount      *decimal.Decimal   `json:"repaid_amount,omitempty" db:"repaid_amount"`
	RepaymentBehavior *RepaymentBehavior `json:"repayment_behavior,omitempty" db:"repayment_behavior"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// OutstandingPrincipal returns the principal not yet repaid. A missing repaid amount counts as zero.
func (l *Loan) OutstandingPrincipal() decimal.Decimal {
	if l.RepaidAmount == nil {
		return l.LoanAmount
	}
	return l.LoanAmount.Sub(*l.RepaidAmount)
}

// LoanWithProduct joins a loan with the product it was taken against.
type LoanWithProduct struct {
	Loan
	Product LoanProduct `json:"product"`
}

// Payment is a repayment made against a loan.
type Payment struct {
	ID     string          `json:"id" db:"id"`
	LoanID string          `json:"loan_id" db:"loan_id"`
	Amount decimal.Decimal `json:"amount" db:"amount"`
	Date   time.Time       `json:"date" db:"date"`
}

// StatementLine is one row of a borrower's transaction statement.
// Financed purchases are positive and repayments negative.
type StatementLine struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}
