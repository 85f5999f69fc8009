package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// BankAccountSnapshot is the instructor's payout destination captured at
// request time, so later profile edits do not change where money goes.
type BankAccountSnapshot struct {
	HolderName    string `gorm:"type:varchar(120)" json:"holder_name"`
	AccountNumber string `gorm:"type:varchar(30)" json:"account_number"`
	IFSCCode      string `gorm:"type:varchar(20)" json:"ifsc_code"`
	BankName      string `gorm:"type:varchar(120)" json:"bank_name"`
}

func (b BankAccountSnapshot) Complete() bool {
	return b.HolderName != "" && b.AccountNumber != "" && b.IFSCCode != "" && b.BankName != ""
}

type WithdrawalRequest struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID uuid.UUID           `gorm:"type:uuid;index;not null" json:"instructor_id"`
	Amount       int64               `gorm:"not null" json:"amount"`
	BankAccount  BankAccountSnapshot `gorm:"embedded;embeddedPrefix:bank_" json:"bank_account"`
	Status       WithdrawalStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminID      *uuid.UUID          `gorm:"type:uuid" json:"admin_id,omitempty"`
	Remarks      string              `gorm:"type:text" json:"remarks"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (r *WithdrawalRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
