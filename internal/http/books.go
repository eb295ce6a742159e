package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/entities"
)

type createBookRequest struct {
	Title           string  `json:"title" binding:"required,max=200"`
	Author          string  `json:"author" binding:"required,max=100"`
	ISBN            string  `json:"isbn" binding:"required,isbn"`
	Genre           string  `json:"genre" binding:"required,oneof=Fiction Non-Fiction Science History Biography Children Romance Mystery Fantasy Other"`
	CategoryID      *string `json:"categoryId" binding:"omitempty,objectid"`
	PublicationYear int     `json:"publicationYear" binding:"required,min=1000,notfuture"`
	Publisher       string  `json:"publisher" binding:"required,max=100"`
	TotalCopies     int     `json:"totalCopies" binding:"required,min=1"`
	AvailableCopies *int    `json:"availableCopies" binding:"omitempty,min=0"`
	Description     string  `json:"description" binding:"max=1000"`
	CoverImage      string  `json:"coverImage" binding:"omitempty,url"`
}

// updateBookRequest is a partial update. An empty categoryId removes the
// book from its category.
type updateBookRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=200"`
	Author          *string `json:"author" binding:"omitempty,min=1,max=100"`
	ISBN            *string `json:"isbn" binding:"omitempty,isbn"`
	Genre           *string `json:"genre" binding:"omitempty,oneof=Fiction Non-Fiction Science History Biography Children Romance Mystery Fantasy Other"`
	CategoryID      *string `json:"categoryId" binding:"omitempty,objectid"`
	PublicationYear *int    `json:"publicationYear" binding:"omitempty,min=1000,notfuture"`
	Publisher       *string `json:"publisher" binding:"omitempty,min=1,max=100"`
	TotalCopies     *int    `json:"totalCopies" binding:"omitempty,min=1"`
	AvailableCopies *int    `json:"availableCopies" binding:"omitempty,min=0"`
	Description     *string `json:"description" binding:"omitempty,max=1000"`
	CoverImage      *string `json:"coverImage" binding:"omitempty,url"`
}

type BooksController struct {
	catalog *catalog.Service
}

func NewBooksController(catalogService *catalog.Service) *BooksController {
	return &BooksController{
		catalog: catalogService,
	}
}

// List returns every book, optionally filtered by ?genre= and ?search=.
func (controller *BooksController) List(c *gin.Context) {
	filter := books.Filter{
		Genre:  entities.Genre(strings.TrimSpace(c.Query("genre"))),
		Search: strings.TrimSpace(c.Query("search")),
	}
	result, err := controller.catalog.ListBooks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

func (controller *BooksController) ListByCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "categoryId", "category")
	if !ok {
		return
	}
	result, err := controller.catalog.ListBooksByCategory(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

func (controller *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	book, err := controller.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, book)
}

func (controller *BooksController) Create(c *gin.Context) {
	var req createBookRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	book, err := controller.catalog.CreateBook(requestContext(c), catalog.BookInput{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            strings.TrimSpace(req.ISBN),
		Genre:           entities.Genre(req.Genre),
		CategoryID:      req.CategoryID,
		PublicationYear: req.PublicationYear,
		Publisher:       strings.TrimSpace(req.Publisher),
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
		Description:     strings.TrimSpace(req.Description),
		CoverImage:      strings.TrimSpace(req.CoverImage),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Book created successfully", book)
}

func (controller *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	var req updateBookRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	changes := catalog.BookChanges{
		Title:           trimmed(req.Title),
		Author:          trimmed(req.Author),
		ISBN:            trimmed(req.ISBN),
		CategoryID:      req.CategoryID,
		PublicationYear: req.PublicationYear,
		Publisher:       trimmed(req.Publisher),
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.AvailableCopies,
		Description:     trimmed(req.Description),
		CoverImage:      trimmed(req.CoverImage),
	}
	if req.Genre != nil {
		genre := entities.Genre(*req.Genre)
		changes.Genre = &genre
	}

	modified, err := controller.catalog.UpdateBook(requestContext(c), id, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondModified(c, "Book updated successfully", modified)
}

func (controller *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	if err := controller.catalog.DeleteBook(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondDeleted(c, "Book deleted successfully")
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
