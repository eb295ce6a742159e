// Package categories provides database operations for book categories.
package categories

import (
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all categories ordered by name.
func (r *Repository) List() ([]entities.Category, error) {
	categories := []entities.Category{}
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *Repository) GetByID(id string) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// NameTaken reports whether another category already uses name. The
// comparison is case-sensitive.
func (r *Repository) NameTaken(name, exceptID string) (bool, error) {
	var count int64
	query := r.db.Model(&entities.Category{}).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(category *entities.Category) error {
	// IsActive has no column default, so a false flag is stored as given.
	return r.db.Create(category).Error
}

func (r *Repository) Update(id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&entities.Category{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.Category{})
	return result.RowsAffected, result.Error
}

// IncrementBookCount adds one to the category's book counter.
func (r *Repository) IncrementBookCount(id string) error {
	return r.db.Model(&entities.Category{}).
		Where("id = ?", id).
		UpdateColumn("book_count", gorm.Expr("book_count + 1")).Error
}

// DecrementBookCount subtracts one from the category's book counter,
// never going below zero. A missing category is ignored.
func (r *Repository) DecrementBookCount(id string) error {
	return r.db.Model(&entities.Category{}).
		Where("id = ? AND book_count > 0", id).
		UpdateColumn("book_count", gorm.Expr("book_count - 1")).Error
}

// SumBookCounts totals the counters across all categories.
func (r *Repository) SumBookCounts() (int64, error) {
	var total int64
	err := r.db.Model(&entities.Category{}).Select("COALESCE(SUM(book_count), 0)").Scan(&total).Error
	return total, err
}
