package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cartsvc "storefront/internal/service/cart"
)

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cart.Get(sessionFrom(c).Store))
}

func (h *handlers) clearCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cart.Clear(sessionFrom(c).Store))
}

func (h *handlers) addToCart(c *gin.Context) {
	var in cartsvc.AddInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	st := sessionFrom(c).Store
	sum, err := h.Cart.Add(c.Request.Context(), st, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": sum, "toast": st.Snapshot().Toast})
}

type quantityRequest struct {
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant"`
}

func (h *handlers) updateCartItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	sum, err := h.Cart.UpdateQuantity(c.Request.Context(), sessionFrom(c).Store, id, req.Quantity, req.Variant)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	c.JSON(http.StatusOK, h.Cart.Remove(sessionFrom(c).Store, id, c.Query("variant")))
}

func (h *handlers) availability(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	_, avail, err := h.Cart.Availability(c.Request.Context(), sessionFrom(c).Store, id, c.Query("variant"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}
