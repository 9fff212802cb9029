package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/learning-analytics-api/internal/dto"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
	"github.com/noah-isme/learning-analytics-api/pkg/response"
)

type groupLister interface {
	Groups(ctx context.Context) ([]dto.GroupSummary, bool, error)
}

// ContentHandler serves course listings for dashboard selectors.
type ContentHandler struct {
	service groupLister
}

// NewContentHandler constructs a content handler.
func NewContentHandler(service groupLister) *ContentHandler {
	return &ContentHandler{service: service}
}

// Groups godoc
// @Summary List courses
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *ContentHandler) Groups(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	groups, cacheHit, err := h.service.Groups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	writeAnalytics(c, start, groups, cacheHit)
}
