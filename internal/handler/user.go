package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/internal/pkg/apperrors"
	"github.com/GoPolymarket/ginauditor/internal/service"
	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.svc.List()})
}

func (h *UserHandler) Create(c *gin.Context) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType != "application/json" {
		respondError(c, apperrors.New(apperrors.ErrUnsupportedMedia, "Media type is not supported.", nil))
		return
	}

	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewInvalidRequest("invalid JSON body"))
		return
	}
	user, err := h.svc.Create(req)
	if err != nil {
		respondError(c, err)
		return
	}

	auditor.AddAuditContext(c, "userId", user.ID)
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.NewNotFound("user not found"))
		return
	}
	user, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
