package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/apperr"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/entities"
)

type createLoanRequest struct {
	BookID   string  `json:"bookId" binding:"required,objectid"`
	UserID   string  `json:"userId" binding:"required,objectid"`
	LoanDate *string `json:"loanDate" binding:"omitempty,isodate"`
	DueDate  string  `json:"dueDate" binding:"required,isodate"`
	Notes    string  `json:"notes" binding:"max=500"`
}

// updateLoanRequest is a partial update. Supplying returnDate, or status
// "returned", marks the loan returned.
type updateLoanRequest struct {
	DueDate    *string `json:"dueDate" binding:"omitempty,isodate"`
	ReturnDate *string `json:"returnDate" binding:"omitempty,isodate"`
	Status     *string `json:"status" binding:"omitempty,oneof=active returned overdue"`
	Notes      *string `json:"notes" binding:"omitempty,max=500"`
}

type LoansController struct {
	catalog *catalog.Service
}

func NewLoansController(catalogService *catalog.Service) *LoansController {
	return &LoansController{catalog: catalogService}
}

// List returns all loans with book and user details, newest first.
func (controller *LoansController) List(c *gin.Context) {
	result, err := controller.catalog.ListLoans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

func (controller *LoansController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "loan")
	if !ok {
		return
	}
	loan, err := controller.catalog.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, loan)
}

func (controller *LoansController) ListByUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId", "user")
	if !ok {
		return
	}
	result, err := controller.catalog.ListLoansByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

// ListOverdue returns outstanding loans past their due date, oldest due first.
func (controller *LoansController) ListOverdue(c *gin.Context) {
	result, err := controller.catalog.ListOverdueLoans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

func (controller *LoansController) Create(c *gin.Context) {
	var req createLoanRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	// Formats were checked by the isodate rule.
	dueDate, _ := parseDate(req.DueDate)
	loanDate, _ := parseOptionalDate(req.LoanDate)

	loan, err := controller.catalog.CreateLoan(requestContext(c), catalog.LoanInput{
		BookID:   req.BookID,
		UserID:   req.UserID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Loan created successfully", loan)
}

func (controller *LoansController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "loan")
	if !ok {
		return
	}
	var req updateLoanRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		respondError(c, apperr.Validation("Invalid due date format"))
		return
	}
	returnDate, err := parseOptionalDate(req.ReturnDate)
	if err != nil {
		respondError(c, apperr.Validation("Invalid return date format"))
		return
	}

	changes := catalog.LoanChanges{
		DueDate:    dueDate,
		ReturnDate: returnDate,
		Notes:      trimmed(req.Notes),
	}
	if req.Status != nil {
		status := entities.LoanStatus(*req.Status)
		changes.Status = &status
	}

	modified, err := controller.catalog.UpdateLoan(requestContext(c), id, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondModified(c, "Loan updated successfully", modified)
}

func (controller *LoansController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "loan")
	if !ok {
		return
	}
	if err := controller.catalog.DeleteLoan(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondDeleted(c, "Loan deleted successfully")
}
