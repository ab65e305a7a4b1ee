package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-api/internal/domain"
	"storefront-api/internal/service"
)

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	in := service.PlaceOrderInput{
		UserID:        currentUser(c),
		Items:         make([]service.LineItem, 0, len(req.Items)),
		Total:         *req.Total,
		VATAmount:     *req.VATAmount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	}
	for _, it := range req.Items {
		// binding already checked the uuid tag
		in.Items = append(in.Items, service.LineItem{ProductID: uuid.MustParse(it.ProductID), Quantity: it.Quantity})
	}
	if a := req.ShippingAddress; a != nil {
		in.ShippingAddress = &domain.Address{Street: a.Street, City: a.City, District: a.District, Country: a.Country}
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) listOrders(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	if page > domain.MaxPage {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("page must be at most %d", domain.MaxPage)})
		return
	}
	limit, ok := queryInt(c, "limit", domain.DefaultPageLimit)
	if !ok {
		return
	}
	page, limit = domain.NormalizePage(page, limit)

	orders, total, err := h.orders.ListOrders(c.Request.Context(), currentUser(c), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := listResponse[orderResponse]{Data: make([]orderResponse, 0, len(orders)), Page: page, Limit: limit, Total: total}
	for i := range orders {
		resp.Data = append(resp.Data, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), currentUser(c), id, isAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}
