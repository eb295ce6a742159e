package entities

type Category struct {
	Document
	Name        string `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Description string `gorm:"size:200" json:"description,omitempty"`
	BookCount   int    `gorm:"not null;default:0" json:"bookCount"`
	IsActive    bool   `gorm:"not null" json:"isActive"`
}

func (Category) TableName() string {
	return "categories"
}
