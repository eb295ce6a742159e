package entities

import "time"

type UserRole string

const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

type User struct {
	Document
	Username       string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string     `gorm:"size:255" json:"-"`
	FirstName      string     `gorm:"size:50" json:"firstName"`
	LastName       string     `gorm:"size:50" json:"lastName"`
	Role           UserRole   `gorm:"size:20;not null;default:member" json:"role"`
	Status         UserStatus `gorm:"size:20;not null;default:active" json:"status"`
	MembershipDate time.Time  `json:"membershipDate"`
	Phone          string     `gorm:"size:32" json:"phone,omitempty"`
	Address        string     `gorm:"size:255" json:"address,omitempty"`
	City           string     `gorm:"size:100" json:"city,omitempty"`
	ExternalID     *string    `gorm:"uniqueIndex;size:64" json:"externalId,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserSummary is the user projection embedded in loan listings.
type UserSummary struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}
