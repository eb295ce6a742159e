package entities

type Genre string

const (
	GenreFiction    Genre = "Fiction"
	GenreNonFiction Genre = "Non-Fiction"
	GenreScience    Genre = "Science"
	GenreHistory    Genre = "History"
	GenreBiography  Genre = "Biography"
	GenreChildren   Genre = "Children"
	GenreRomance    Genre = "Romance"
	GenreMystery    Genre = "Mystery"
	GenreFantasy    Genre = "Fantasy"
	GenreOther      Genre = "Other"
)

// DefaultCoverImage is used when a book is created without a cover.
const DefaultCoverImage = "https://via.placeholder.com/200x300?text=No+Cover"

type Book struct {
	Document
	Title           string  `gorm:"size:200;not null;index" json:"title"`
	Author          string  `gorm:"size:100;not null;index" json:"author"`
	ISBN            string  `gorm:"uniqueIndex;size:13;not null" json:"isbn"`
	Genre           Genre   `gorm:"size:20;index" json:"genre,omitempty"`
	CategoryID      *string `gorm:"size:24;index" json:"categoryId"`
	PublicationYear int     `json:"publicationYear"`
	Publisher       string  `gorm:"size:100" json:"publisher"`
	TotalCopies     int     `gorm:"not null" json:"totalCopies"`
	AvailableCopies int     `gorm:"not null" json:"availableCopies"`
	Description     string  `gorm:"size:1000" json:"description,omitempty"`
	CoverImage      string  `gorm:"size:500" json:"coverImage"`
}

func (Book) TableName() string {
	return "books"
}

// BookSummary is the book projection embedded in loan listings.
type BookSummary struct {
	ID     string `json:"_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}
