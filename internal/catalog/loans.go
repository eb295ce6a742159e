package catalog

import (
	"context"
	"time"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/entities"
)

const (
	msgNoCopies       = "No copies available for this book"
	msgUserNotActive  = "User account is not active"
	msgDueBeforeLoan  = "Due date must be after loan date"
	msgLoanIsReturned = "Returned loans cannot be reopened"
	msgReturnTooEarly = "Return date cannot be before loan date"
)

type LoanInput struct {
	BookID   string
	UserID   string
	LoanDate *time.Time
	DueDate  time.Time
	Notes    string
}

// LoanChanges holds a partial loan update. Setting ReturnDate on an
// outstanding loan returns the copy; so does Status "returned" alone.
type LoanChanges struct {
	DueDate    *time.Time
	ReturnDate *time.Time
	Status     *entities.LoanStatus
	Notes      *string
}

func dueDateError() error {
	return apperr.Validation("Validation failed", apperr.FieldError{Field: "dueDate", Message: msgDueBeforeLoan})
}

func returnDateError() error {
	return apperr.Validation("Validation failed", apperr.FieldError{Field: "returnDate", Message: msgReturnTooEarly})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// ListLoans returns every loan with book and user display fields.
func (s *Service) ListLoans(ctx context.Context) ([]entities.LoanView, error) {
	r := s.read(ctx)
	list, err := r.loans.List()
	if err != nil {
		return nil, err
	}
	return r.loans.Views(list)
}

func (s *Service) GetLoan(ctx context.Context, id string) (*entities.LoanView, error) {
	view, err := s.read(ctx).loans.GetView(id)
	if err != nil {
		return nil, notFound(err, apperr.NotFound("Loan"))
	}
	return view, nil
}

// ListLoansByUser returns a user's loans without joined display fields.
func (s *Service) ListLoansByUser(ctx context.Context, userID string) ([]entities.Loan, error) {
	return s.read(ctx).loans.ListByUser(userID)
}

// ListOverdueLoans returns outstanding loans past their due date without
// joined display fields.
func (s *Service) ListOverdueLoans(ctx context.Context) ([]entities.Loan, error) {
	return s.read(ctx).loans.ListOverdue(s.now())
}

// CreateLoan lends one copy of a book to an active user.
func (s *Service) CreateLoan(ctx context.Context, in LoanInput) (*entities.Loan, error) {
	loanDate := s.now()
	if in.LoanDate != nil {
		loanDate = in.LoanDate.UTC()
	}
	dueDate := in.DueDate.UTC()
	if !dueDate.After(loanDate) {
		return nil, dueDateError()
	}

	loan := &entities.Loan{
		BookID:   in.BookID,
		UserID:   in.UserID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Status:   entities.LoanActive,
		Notes:    in.Notes,
	}

	err := s.inTx(ctx, func(r *repos) error {
		book, err := r.books.GetByID(in.BookID)
		if err != nil {
			return notFound(err, apperr.NotFound("Book"))
		}
		if book.AvailableCopies <= 0 {
			return apperr.Conflict(msgNoCopies)
		}

		user, err := r.users.GetByID(in.UserID)
		if err != nil {
			return notFound(err, apperr.NotFound("User"))
		}
		if !user.IsActive() {
			return apperr.InvalidState(msgUserNotActive)
		}

		// The conditional decrement is the authority on availability; the
		// check above only gives a precise error for the common case.
		took, err := r.books.TakeCopy(book.ID)
		if err != nil {
			return err
		}
		if !took {
			return apperr.Conflict(msgNoCopies)
		}

		if err := r.loans.Create(loan); err != nil {
			return err
		}
		if s.audit != nil {
			return s.audit.LogLoan(r.tx, actorFrom(ctx), "loan_create", loan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// UpdateLoan applies changes and returns the modified row count. Returning
// an already returned loan leaves the copy counter alone.
func (s *Service) UpdateLoan(ctx context.Context, id string, ch LoanChanges) (int64, error) {
	ch.DueDate = utcPtr(ch.DueDate)
	ch.ReturnDate = utcPtr(ch.ReturnDate)

	var modified int64
	err := s.inTx(ctx, func(r *repos) error {
		loan, err := r.loans.GetByID(id)
		if err != nil {
			return notFound(err, apperr.NotFound("Loan"))
		}

		updates := map[string]interface{}{}
		if ch.DueDate != nil {
			if !ch.DueDate.After(loan.LoanDate) {
				return dueDateError()
			}
			updates["due_date"] = *ch.DueDate
		}
		setString(updates, "notes", ch.Notes)

		var returnedAt *time.Time
		if loan.Outstanding() {
			switch {
			case ch.ReturnDate != nil:
				if ch.ReturnDate.Before(loan.LoanDate) {
					return returnDateError()
				}
				returnedAt = ch.ReturnDate
			case ch.Status != nil && *ch.Status == entities.LoanReturned:
				now := s.now()
				returnedAt = &now
			case ch.Status != nil:
				updates["status"] = *ch.Status
			}
		} else if ch.Status != nil && *ch.Status != entities.LoanReturned {
			return apperr.InvalidState(msgLoanIsReturned)
		}

		if returnedAt != nil {
			updates["return_date"] = *returnedAt
			updates["status"] = entities.LoanReturned
		}
		if len(updates) == 0 {
			return nil
		}

		modified, err = r.loans.Update(id, updates)
		if err != nil {
			return err
		}

		if returnedAt != nil {
			if err := r.books.ReturnCopy(loan.BookID); err != nil {
				return err
			}
			if s.audit != nil {
				loan.Status = entities.LoanReturned
				return s.audit.LogLoan(r.tx, actorFrom(ctx), "loan_return", loan)
			}
		}
		return nil
	})
	return modified, err
}

// DeleteLoan removes a loan, putting the copy back on the shelf when it
// was still out.
func (s *Service) DeleteLoan(ctx context.Context, id string) error {
	return s.inTx(ctx, func(r *repos) error {
		loan, err := r.loans.GetByID(id)
		if err != nil {
			return notFound(err, apperr.NotFound("Loan"))
		}

		if loan.Outstanding() {
			if err := r.books.ReturnCopy(loan.BookID); err != nil {
				return err
			}
		}
		if _, err := r.loans.Delete(id); err != nil {
			return err
		}
		if s.audit != nil {
			return s.audit.LogLoan(r.tx, actorFrom(ctx), "loan_delete", loan)
		}
		return nil
	})
}
