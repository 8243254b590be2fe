package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type categoryService interface {
	List(ctx context.Context, page models.Pagination) ([]moodle.Category, *models.Pagination, bool, error)
	Detail(ctx context.Context, categoryID int64) (*models.CategoryDetail, bool, error)
}

// CategoryHandler exposes course categories.
type CategoryHandler struct {
	categories categoryService
}

// NewCategoryHandler constructs CategoryHandler.
func NewCategoryHandler(categories categoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Param limit query int false "Page size (1-200)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, page, hit, err := h.categories.List(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, categories, page, middleware.ExtractMeta(c))
}

// Detail godoc
// @Summary Category detail
// @Description Category with its direct subcategories and public courses
// @Tags Categories
// @Produce json
// @Param categoryId path int true "Category ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{categoryId} [get]
func (h *CategoryHandler) Detail(c *gin.Context) {
	id, err := parsePositiveID(c.Param("categoryId"), "category id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, hit, err := h.categories.Detail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, detail, nil, middleware.ExtractMeta(c))
}
