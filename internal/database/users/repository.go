// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(email)
package users

import (
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all users, newest first.
func (r *Repository) List() ([]entities.User, error) {
	users := []entities.User{}
	err := r.db.Order("created_at DESC").Find(&users).Error
	return users, err
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id string) (*entities.User, error) {
	return r.first("id = ?", id)
}

// GetByEmail retrieves a user by normalized email.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	return r.first("email = ?", email)
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	return r.first("username = ?", username)
}

// GetByExternalID retrieves a user linked to an OAuth identity.
func (r *Repository) GetByExternalID(externalID string) (*entities.User, error) {
	return r.first("external_id = ?", externalID)
}

// GetByLogin retrieves a user whose username or email equals login.
func (r *Repository) GetByLogin(login string) (*entities.User, error) {
	return r.first("username = ? OR email = ?", login, login)
}

func (r *Repository) first(query string, args ...interface{}) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where(query, args...).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether another user already uses email.
func (r *Repository) EmailTaken(email, exceptID string) (bool, error) {
	return r.taken("email", email, exceptID)
}

// UsernameTaken reports whether another user already uses username.
func (r *Repository) UsernameTaken(username, exceptID string) (bool, error) {
	return r.taken("username", username, exceptID)
}

func (r *Repository) taken(column, value, exceptID string) (bool, error) {
	var count int64
	query := r.db.Model(&entities.User{}).Where(column+" = ?", value)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// Create creates a new user.
func (r *Repository) Create(user *entities.User) error {
	return r.db.Create(user).Error
}

func (r *Repository) Update(id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.User{})
	return result.RowsAffected, result.Error
}

// Count returns the number of users.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}
