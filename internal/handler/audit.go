package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/model"
	"github.com/GoPolymarket/ginauditor/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

type AuditLister interface {
	List(ctx context.Context, filter model.ListFilter) ([]*model.AuditLog, error)
}

type AuditHandler struct {
	svc AuditLister
}

func NewAuditHandler(svc AuditLister) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List serves GET /audit/logs?action=&limit=&from=&to=.
func (h *AuditHandler) List(c *gin.Context) {
	filter := model.ListFilter{ActionID: c.Query("action")}

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.NewInvalidRequest("invalid limit"))
			return
		}
		filter.Limit = parsed
	}
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			respondError(c, apperrors.NewInvalidRequest(err.Error()))
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			respondError(c, apperrors.NewInvalidRequest(err.Error()))
			return
		}
		filter.To = &t
	}

	records, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	if records == nil {
		records = []*model.AuditLog{}
	}
	c.JSON(http.StatusOK, records)
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
