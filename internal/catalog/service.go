// Package catalog implements the inventory rules of the library: books and
// their copy counters, categories and their book counters, and the loan
// lifecycle that moves copies in and out.
//
// Every operation that touches more than one record runs in a single
// database transaction (see database.Transaction), so counters never drift
// from the records they summarize even under concurrent requests.
package catalog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/categories"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/users"
)

type Service struct {
	db    *gorm.DB
	audit *audit.Service
	now   func() time.Time
}

// NewService creates the catalog service. auditService may be nil.
func NewService(db *gorm.DB, auditService *audit.Service) *Service {
	return &Service{
		db:    db,
		audit: auditService,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type actorKey struct{}

// WithActor attaches the id of the user performing the request.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func actorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}

// repos groups repositories bound to one transaction.
type repos struct {
	tx         *gorm.DB
	books      *books.Repository
	categories *categories.Repository
	loans      *loans.Repository
	users      *users.Repository
}

func newRepos(db *gorm.DB) *repos {
	return &repos{
		tx:         db,
		books:      books.NewRepository(db),
		categories: categories.NewRepository(db),
		loans:      loans.NewRepository(db),
		users:      users.NewRepository(db),
	}
}

func (s *Service) read(ctx context.Context) *repos {
	return newRepos(s.db.WithContext(ctx))
}

func (s *Service) inTx(ctx context.Context, fn func(r *repos) error) error {
	return database.Transaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(newRepos(tx))
	})
}

// notFound maps a missing record to apperr and wraps anything else.
func notFound(err error, e *apperr.Error) error {
	if database.IsNotFound(err) {
		return e
	}
	return err
}

// translateWrite turns unique index violations into duplicate errors naming
// the offending field.
func translateWrite(err error, entity string) error {
	if err == nil {
		return nil
	}
	if column, ok := database.DuplicateField(err); ok {
		field := jsonField(column)
		return apperr.Duplicate(field, fmt.Sprintf("%s with this %s already exists", entity, field))
	}
	return err
}

func jsonField(column string) string {
	switch column {
	case "isbn":
		return "isbn"
	case "external_id":
		return "externalId"
	}
	return column
}
