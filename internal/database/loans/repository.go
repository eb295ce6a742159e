// Package loans provides database operations for book loans.
//
// Loans reference books and users by id only. The view helpers join in
// display fields and tolerate references whose target has been deleted.
package loans

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns every loan, most recent first.
func (r *Repository) List() ([]entities.Loan, error) {
	loans := []entities.Loan{}
	err := r.db.Order("loan_date DESC").Find(&loans).Error
	return loans, err
}

// ListByUser returns a user's loans, most recent first.
func (r *Repository) ListByUser(userID string) ([]entities.Loan, error) {
	loans := []entities.Loan{}
	err := r.db.Where("user_id = ?", userID).Order("loan_date DESC").Find(&loans).Error
	return loans, err
}

// ListOverdue returns outstanding loans whose due date is before now,
// earliest due first.
func (r *Repository) ListOverdue(now time.Time) ([]entities.Loan, error) {
	loans := []entities.Loan{}
	err := r.db.
		Where("status IN ? AND return_date IS NULL AND due_date < ?",
			[]entities.LoanStatus{entities.LoanActive, entities.LoanOverdue}, now.UTC()).
		Order("due_date ASC").
		Find(&loans).Error
	return loans, err
}

func (r *Repository) GetByID(id string) (*entities.Loan, error) {
	var loan entities.Loan
	if err := r.db.Where("id = ?", id).First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *Repository) Create(loan *entities.Loan) error {
	return r.db.Create(loan).Error
}

func (r *Repository) Update(id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&entities.Loan{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.Loan{})
	return result.RowsAffected, result.Error
}

// Views joins book and user display fields into each loan.
func (r *Repository) Views(loans []entities.Loan) ([]entities.LoanView, error) {
	bookIDs := make([]string, 0, len(loans))
	userIDs := make([]string, 0, len(loans))
	for _, l := range loans {
		bookIDs = append(bookIDs, l.BookID)
		userIDs = append(userIDs, l.UserID)
	}

	var books []entities.BookSummary
	if len(bookIDs) > 0 {
		err := r.db.Model(&entities.Book{}).
			Select("id", "title", "author", "isbn").
			Where("id IN ?", bookIDs).
			Scan(&books).Error
		if err != nil {
			return nil, err
		}
	}
	var users []entities.UserSummary
	if len(userIDs) > 0 {
		err := r.db.Model(&entities.User{}).
			Select("id", "first_name", "last_name", "email").
			Where("id IN ?", userIDs).
			Scan(&users).Error
		if err != nil {
			return nil, err
		}
	}

	bookByID := make(map[string]*entities.BookSummary, len(books))
	for i := range books {
		bookByID[books[i].ID] = &books[i]
	}
	userByID := make(map[string]*entities.UserSummary, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}

	views := make([]entities.LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, entities.LoanView{
			Loan: l,
			Book: bookByID[l.BookID],
			User: userByID[l.UserID],
		})
	}
	return views, nil
}

// GetView retrieves one loan with its joined display fields.
func (r *Repository) GetView(id string) (*entities.LoanView, error) {
	loan, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	views, err := r.Views([]entities.Loan{*loan})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
