package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-api/internal/domain"
	"storefront-api/internal/service"
)

func (h *Handler) listProducts(c *gin.Context) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	filter := domain.ProductFilter{Search: q.Search, InStock: q.InStock, Page: q.Page, Limit: q.Limit}
	if q.CategoryID != "" {
		id := uuid.MustParse(q.CategoryID)
		filter.CategoryID = &id
	}
	if q.MinPrice != "" {
		v := decimal.RequireFromString(q.MinPrice)
		filter.MinPrice = &v
	}
	if q.MaxPrice != "" {
		v := decimal.RequireFromString(q.MaxPrice)
		filter.MaxPrice = &v
	}
	filter.Normalize()

	items, total, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := listResponse[productResponse]{Data: make([]productResponse, 0, len(items)), Page: filter.Page, Limit: filter.Limit, Total: total}
	for i := range items {
		resp.Data = append(resp.Data, toProductResponse(&items[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	in := service.ProductInput{
		CategoryID:    optionalID(req.CategoryID),
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: *req.StockQuantity,
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	patch := service.ProductPatch{
		CategoryID:    optionalID(req.CategoryID),
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func optionalID(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := uuid.MustParse(*s)
	return &id
}
