package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	checkoutsvc "storefront/internal/service/checkout"
)

func (h *handlers) checkoutSummary(c *gin.Context) {
	st := sessionFrom(c).Store
	c.JSON(http.StatusOK, gin.H{
		"totals":    checkoutsvc.Summarize(st.Cart()),
		"form":      checkoutsvc.Prefill(st.User()),
		"publicKey": h.Checkout.PublicKey(),
	})
}

func (h *handlers) createPreference(c *gin.Context) {
	var form checkoutsvc.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid body")
		return
	}
	out, err := h.Checkout.CreatePreference(c.Request.Context(), sessionFrom(c), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type confirmRequest struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

func (h *handlers) confirmPayment(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	res, err := h.Checkout.Confirm(c.Request.Context(), sessionFrom(c), req.PaymentID, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
