package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
)

type createUserRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=30,username"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
	FirstName string `json:"firstName" binding:"required,min=1,max=50"`
	LastName  string `json:"lastName" binding:"required,min=1,max=50"`
	Role      string `json:"role" binding:"omitempty,oneof=member admin"`
	Status    string `json:"status" binding:"omitempty,oneof=active inactive suspended"`
	Phone     string `json:"phone" binding:"max=32"`
	Address   string `json:"address" binding:"max=255"`
	City      string `json:"city" binding:"max=100"`
}

type updateUserRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=30,username"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,min=6,max=72"`
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=50"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=50"`
	Role      *string `json:"role" binding:"omitempty,oneof=member admin"`
	Status    *string `json:"status" binding:"omitempty,oneof=active inactive suspended"`
	Phone     *string `json:"phone" binding:"omitempty,max=32"`
	Address   *string `json:"address" binding:"omitempty,max=255"`
	City      *string `json:"city" binding:"omitempty,max=100"`
}

// UsersController exposes account management. The password hash never
// leaves the server because entities.User does not serialize it.
type UsersController struct {
	authService *auth.Service
}

func NewUsersController(authService *auth.Service) *UsersController {
	return &UsersController{authService: authService}
}

func (controller *UsersController) List(c *gin.Context) {
	result, err := controller.authService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, result)
}

func (controller *UsersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	user, err := controller.authService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, user)
}

// Create registers an account. Anyone may register; role and status are
// only honored for an admin caller.
func (controller *UsersController) Create(c *gin.Context) {
	var req createUserRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	user, err := controller.authService.Register(c.Request.Context(), auth.GetUser(c), auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      entities.UserRole(req.Role),
		Status:    entities.UserStatus(req.Status),
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "User created successfully", user)
}

func (controller *UsersController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	changes := auth.UserChanges{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
	}
	if req.Role != nil {
		role := entities.UserRole(*req.Role)
		changes.Role = &role
	}
	if req.Status != nil {
		status := entities.UserStatus(*req.Status)
		changes.Status = &status
	}

	user, err := controller.authService.UpdateUser(c.Request.Context(), auth.GetUser(c), id, changes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Message: "User updated successfully", Data: user})
}

func (controller *UsersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	if err := controller.authService.DeleteUser(c.Request.Context(), auth.GetUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondDeleted(c, "User deleted successfully")
}
