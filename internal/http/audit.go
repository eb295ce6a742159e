package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

const (
	defaultAuditLimit = 25
	maxAuditLimit     = 100
)

// AuditListResponse extends the list envelope with paging information.
type AuditListResponse struct {
	Success    bool                  `json:"success"`
	Count      int                   `json:"count"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"totalPages"`
	Data       []entities.AuditEvent `json:"data"`
}

type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// List returns paginated audit events.
// GET /audit?type=loan&page=1&limit=25
func (ac *AuditController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	offset := (page - 1) * limit

	events, total, err := ac.auditService.GetEvents(entities.AuditEventType(c.Query("type")), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, AuditListResponse{
		Success:    true,
		Count:      len(events),
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		Data:       events,
	})
}

// History returns the events recorded against one entity.
// GET /audit/:entityType/:id
func (ac *AuditController) History(c *gin.Context) {
	id, ok := parseIDParam(c, "id", c.Param("entityType"))
	if !ok {
		return
	}
	events, err := ac.auditService.History(c.Param("entityType"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, events)
}
