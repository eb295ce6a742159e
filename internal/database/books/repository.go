// Package books provides database operations for the book inventory.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(id)
//
// Counter updates (AvailableCopies) are single conditional statements so
// they stay correct when several loans touch the same book concurrently.
package books

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Genre  entities.Genre
	Search string
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns books in insertion order.
func (r *Repository) List(filter Filter) ([]entities.Book, error) {
	query := r.db.Model(&entities.Book{})
	if filter.Genre != "" {
		query = query.Where("genre = ?", filter.Genre)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like)
	}

	books := []entities.Book{}
	err := query.Order("created_at ASC").Find(&books).Error
	return books, err
}

// ListByCategory returns the books referencing categoryID.
func (r *Repository) ListByCategory(categoryID string) ([]entities.Book, error) {
	books := []entities.Book{}
	err := r.db.Where("category_id = ?", categoryID).Order("created_at ASC").Find(&books).Error
	return books, err
}

// GetByID retrieves a book or gorm.ErrRecordNotFound.
func (r *Repository) GetByID(id string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Where("id = ?", id).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// ISBNTaken reports whether another book already uses isbn.
func (r *Repository) ISBNTaken(isbn, exceptID string) (bool, error) {
	var count int64
	query := r.db.Model(&entities.Book{}).Where("isbn = ?", isbn)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(book *entities.Book) error {
	return r.db.Create(book).Error
}

// Update applies column updates and returns the number of matched rows.
func (r *Repository) Update(id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

// Delete removes a book and returns the number of deleted rows.
func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.Book{})
	return result.RowsAffected, result.Error
}

// TakeCopy decrements AvailableCopies when at least one copy is on the
// shelf. It returns false when none was available.
func (r *Repository) TakeCopy(id string) (bool, error) {
	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	return result.RowsAffected == 1, result.Error
}

// ReturnCopy increments AvailableCopies without exceeding TotalCopies. A
// book that no longer exists is left alone.
func (r *Repository) ReturnCopy(id string) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		UpdateColumn("available_copies", gorm.Expr(
			"CASE WHEN available_copies < total_copies THEN available_copies + 1 ELSE available_copies END",
		)).Error
}

// CountCategorized returns how many books reference any category.
func (r *Repository) CountCategorized() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("category_id IS NOT NULL").Count(&count).Error
	return count, err
}
