package entities

import (
	"time"

	"gorm.io/gorm"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
	LoanOverdue  LoanStatus = "overdue"
)

type Loan struct {
	Document
	BookID     string     `gorm:"size:24;not null;index" json:"bookId"`
	UserID     string     `gorm:"size:24;not null;index" json:"userId"`
	LoanDate   time.Time  `gorm:"not null;index" json:"loanDate"`
	DueDate    time.Time  `gorm:"not null;index" json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate"`
	Status     LoanStatus `gorm:"size:20;not null;index" json:"status"`
	Notes      string     `gorm:"size:500" json:"notes,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// BeforeSave stores every loan timestamp in UTC. SQLite keeps times as text,
// so mixed offsets would otherwise compare and sort by their wall clock.
func (l *Loan) BeforeSave(tx *gorm.DB) error {
	l.LoanDate = l.LoanDate.UTC()
	l.DueDate = l.DueDate.UTC()
	if l.ReturnDate != nil {
		returned := l.ReturnDate.UTC()
		l.ReturnDate = &returned
	}
	return nil
}

// Outstanding reports whether the borrowed copy has not come back yet.
func (l *Loan) Outstanding() bool {
	return l.ReturnDate == nil && l.Status != LoanReturned
}

// LoanView is a loan with the display fields of its book and user joined in.
// Either side is nil when the referenced record no longer exists.
type LoanView struct {
	Loan
	Book *BookSummary `json:"book"`
	User *UserSummary `json:"user"`
}
