package catalog

import (
	"context"
	"fmt"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/entities"
)

type CategoryInput struct {
	Name        string
	Description string
	// BookCount lets callers seed the counter. It is not reconciled with
	// the books that actually reference the category.
	BookCount *int
	IsActive  *bool
}

type CategoryChanges struct {
	Name        *string
	Description *string
	BookCount   *int
	IsActive    *bool
}

func duplicateCategory(name string) error {
	return apperr.Duplicate("name", fmt.Sprintf("Category with name %q already exists", name))
}

func (s *Service) ListCategories(ctx context.Context) ([]entities.Category, error) {
	return s.read(ctx).categories.List()
}

func (s *Service) GetCategory(ctx context.Context, id string) (*entities.Category, error) {
	category, err := s.read(ctx).categories.GetByID(id)
	if err != nil {
		return nil, notFound(err, apperr.NotFoundID("Category", id))
	}
	return category, nil
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*entities.Category, error) {
	category := &entities.Category{
		Name:        in.Name,
		Description: in.Description,
		IsActive:    true,
	}
	if in.BookCount != nil {
		category.BookCount = *in.BookCount
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	err := s.inTx(ctx, func(r *repos) error {
		taken, err := r.categories.NameTaken(in.Name, "")
		if err != nil {
			return err
		}
		if taken {
			return duplicateCategory(in.Name)
		}
		if err := r.categories.Create(category); err != nil {
			if apperr.IsKind(translateWrite(err, "Category"), apperr.KindDuplicate) {
				return duplicateCategory(in.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory applies changes and returns the modified row count.
func (s *Service) UpdateCategory(ctx context.Context, id string, ch CategoryChanges) (int64, error) {
	var modified int64
	err := s.inTx(ctx, func(r *repos) error {
		if _, err := r.categories.GetByID(id); err != nil {
			return notFound(err, apperr.NotFoundID("Category", id))
		}

		updates := map[string]interface{}{}
		if ch.Name != nil {
			taken, err := r.categories.NameTaken(*ch.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return duplicateCategory(*ch.Name)
			}
			updates["name"] = *ch.Name
		}
		setString(updates, "description", ch.Description)
		if ch.BookCount != nil {
			updates["book_count"] = *ch.BookCount
		}
		if ch.IsActive != nil {
			updates["is_active"] = *ch.IsActive
		}
		if len(updates) == 0 {
			return nil
		}

		var err error
		modified, err = r.categories.Update(id, updates)
		return translateWrite(err, "Category")
	})
	return modified, err
}

// DeleteCategory removes a category. Books keep their categoryId.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.inTx(ctx, func(r *repos) error {
		category, err := r.categories.GetByID(id)
		if err != nil {
			return notFound(err, apperr.NotFoundID("Category", id))
		}
		if _, err := r.categories.Delete(id); err != nil {
			return err
		}
		if s.audit != nil {
			return s.audit.LogDelete(r.tx, actorFrom(ctx), "category", category.ID, category.Name)
		}
		return nil
	})
}
