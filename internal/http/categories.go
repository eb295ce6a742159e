package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/catalog"
)

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"max=200"`
	BookCount   *int   `json:"bookCount" binding:"omitempty,min=0"`
	IsActive    *bool  `json:"isActive"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Description *string `json:"description" binding:"omitempty,max=200"`
	BookCount   *int    `json:"bookCount" binding:"omitempty,min=0"`
	IsActive    *bool   `json:"isActive"`
}

type CategoriesController struct {
	catalog *catalog.Service
}

func NewCategoriesController(catalogService *catalog.Service) *CategoriesController {
	return &CategoriesController{catalog: catalogService}
}

// List returns all categories sorted by name.
func (controller *CategoriesController) List(c *gin.Context) {
	result, err := controller.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

func (controller *CategoriesController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	category, err := controller.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, category)
}

func (controller *CategoriesController) Create(c *gin.Context) {
	var req createCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	category, err := controller.catalog.CreateCategory(requestContext(c), catalog.CategoryInput{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		BookCount:   req.BookCount,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Category created successfully", category)
}

func (controller *CategoriesController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	var req updateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	modified, err := controller.catalog.UpdateCategory(requestContext(c), id, catalog.CategoryChanges{
		Name:        trimmed(req.Name),
		Description: trimmed(req.Description),
		BookCount:   req.BookCount,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondModified(c, "Category updated successfully", modified)
}

func (controller *CategoriesController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	if err := controller.catalog.DeleteCategory(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondDeleted(c, "Category deleted successfully")
}
