package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-api/internal/domain"
)

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cart, err := h.carts.AddItem(c.Request.Context(), currentUser(c), uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		h.failCart(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *Handler) setCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cart, err := h.carts.SetQuantity(c.Request.Context(), currentUser(c), productID, req.Quantity)
	if err != nil {
		h.failCart(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(c.Request.Context(), currentUser(c), productID)
	if err != nil {
		h.failCart(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), currentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// failCart reports an unknown product as a missing resource rather than a bad order line.
func (h *Handler) failCart(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrProductNotFound) {
		h.failWith(c, http.StatusNotFound, err)
		return
	}
	h.fail(c, err)
}
