package catalog

import (
	"context"
	"fmt"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/entities"
)

// BookInput holds the fields of a new book.
type BookInput struct {
	Title           string
	Author          string
	ISBN            string
	Genre           entities.Genre
	CategoryID      *string
	PublicationYear int
	Publisher       string
	TotalCopies     int
	AvailableCopies *int
	Description     string
	CoverImage      string
}

// BookChanges holds a partial update; nil fields are left untouched. A
// CategoryID pointing at "" removes the book from its category.
type BookChanges struct {
	Title           *string
	Author          *string
	ISBN            *string
	Genre           *entities.Genre
	CategoryID      *string
	PublicationYear *int
	Publisher       *string
	TotalCopies     *int
	AvailableCopies *int
	Description     *string
	CoverImage      *string
}

func copiesError(available, total int) error {
	return apperr.Validation(
		fmt.Sprintf("Validation error: Available copies (%d) cannot exceed total copies (%d)", available, total),
		apperr.FieldError{Field: "availableCopies", Message: "cannot exceed totalCopies"},
	)
}

func (s *Service) ListBooks(ctx context.Context, filter books.Filter) ([]entities.Book, error) {
	return s.read(ctx).books.List(filter)
}

func (s *Service) ListBooksByCategory(ctx context.Context, categoryID string) ([]entities.Book, error) {
	return s.read(ctx).books.ListByCategory(categoryID)
}

func (s *Service) GetBook(ctx context.Context, id string) (*entities.Book, error) {
	book, err := s.read(ctx).books.GetByID(id)
	if err != nil {
		return nil, notFound(err, apperr.NotFoundID("Book", id))
	}
	return book, nil
}

// CreateBook stores a new book and counts it in its category.
func (s *Service) CreateBook(ctx context.Context, in BookInput) (*entities.Book, error) {
	available := in.TotalCopies
	if in.AvailableCopies != nil {
		available = *in.AvailableCopies
	}
	if available > in.TotalCopies {
		return nil, copiesError(available, in.TotalCopies)
	}

	cover := in.CoverImage
	if cover == "" {
		cover = entities.DefaultCoverImage
	}
	var categoryID *string
	if in.CategoryID != nil && *in.CategoryID != "" {
		categoryID = in.CategoryID
	}

	book := &entities.Book{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		Genre:           in.Genre,
		CategoryID:      categoryID,
		PublicationYear: in.PublicationYear,
		Publisher:       in.Publisher,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: available,
		Description:     in.Description,
		CoverImage:      cover,
	}

	err := s.inTx(ctx, func(r *repos) error {
		taken, err := r.books.ISBNTaken(book.ISBN, "")
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("isbn", fmt.Sprintf("Book with ISBN %s already exists", book.ISBN))
		}

		if categoryID != nil {
			if _, err := r.categories.GetByID(*categoryID); err != nil {
				return notFound(err, apperr.NotFoundID("Category", *categoryID))
			}
		}

		if err := r.books.Create(book); err != nil {
			return translateWrite(err, "Book")
		}

		if categoryID != nil {
			return r.categories.IncrementBookCount(*categoryID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBook merges changes into the stored book, moving it between
// categories when CategoryID changes. It returns the modified row count.
func (s *Service) UpdateBook(ctx context.Context, id string, ch BookChanges) (int64, error) {
	var modified int64
	err := s.inTx(ctx, func(r *repos) error {
		book, err := r.books.GetByID(id)
		if err != nil {
			return notFound(err, apperr.NotFoundID("Book", id))
		}

		total := book.TotalCopies
		if ch.TotalCopies != nil {
			total = *ch.TotalCopies
		}
		available := book.AvailableCopies
		if ch.AvailableCopies != nil {
			available = *ch.AvailableCopies
		}
		if available > total {
			return copiesError(available, total)
		}

		updates := map[string]interface{}{}
		setString(updates, "title", ch.Title)
		setString(updates, "author", ch.Author)
		setString(updates, "publisher", ch.Publisher)
		setString(updates, "description", ch.Description)
		setString(updates, "cover_image", ch.CoverImage)
		if ch.Genre != nil {
			updates["genre"] = *ch.Genre
		}
		if ch.PublicationYear != nil {
			updates["publication_year"] = *ch.PublicationYear
		}
		if ch.TotalCopies != nil {
			updates["total_copies"] = total
		}
		if ch.AvailableCopies != nil {
			updates["available_copies"] = available
		}

		if ch.ISBN != nil && *ch.ISBN != book.ISBN {
			taken, err := r.books.ISBNTaken(*ch.ISBN, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Duplicate("isbn", fmt.Sprintf("Book with ISBN %s already exists", *ch.ISBN))
			}
			updates["isbn"] = *ch.ISBN
		}

		oldCategory := ""
		if book.CategoryID != nil {
			oldCategory = *book.CategoryID
		}
		moved := ch.CategoryID != nil && *ch.CategoryID != oldCategory
		if moved {
			newCategory := *ch.CategoryID
			if newCategory != "" {
				if _, err := r.categories.GetByID(newCategory); err != nil {
					return notFound(err, apperr.NotFoundID("Category", newCategory))
				}
				updates["category_id"] = newCategory
			} else {
				updates["category_id"] = nil
			}
		}

		if len(updates) == 0 {
			return nil
		}
		modified, err = r.books.Update(id, updates)
		if err != nil {
			return translateWrite(err, "Book")
		}

		if moved {
			if oldCategory != "" {
				if err := r.categories.DecrementBookCount(oldCategory); err != nil {
					return err
				}
			}
			if *ch.CategoryID != "" {
				if err := r.categories.IncrementBookCount(*ch.CategoryID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return modified, err
}

// DeleteBook removes a book and uncounts it from its category. Loans that
// reference the book are kept.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	return s.inTx(ctx, func(r *repos) error {
		book, err := r.books.GetByID(id)
		if err != nil {
			return notFound(err, apperr.NotFoundID("Book", id))
		}
		if _, err := r.books.Delete(id); err != nil {
			return err
		}
		if book.CategoryID != nil {
			if err := r.categories.DecrementBookCount(*book.CategoryID); err != nil {
				return err
			}
		}
		if s.audit != nil {
			return s.audit.LogDelete(r.tx, actorFrom(ctx), "book", book.ID, book.Title)
		}
		return nil
	})
}

func setString(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
