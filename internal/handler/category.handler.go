package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/service"
)

func (h *Handler) listCategories(c *gin.Context) {
	cats, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, toCategoryResponse(&cats[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cat, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(cat))
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cat, err := h.catalog.CreateCategory(c.Request.Context(), service.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCategoryResponse(cat))
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req categoryPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cat, err := h.catalog.UpdateCategory(c.Request.Context(), id, service.CategoryPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(cat))
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
