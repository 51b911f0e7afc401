package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/backend"
	accountsvc "storefront/internal/service/account"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) signup(c *gin.Context) {
	var in accountsvc.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	user, err := h.Accounts.Signup(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created", "user": user})
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	user, err := h.Accounts.Login(c.Request.Context(), sessionFrom(c), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *handlers) logout(c *gin.Context) {
	h.Accounts.Logout(c.Request.Context(), sessionFrom(c))
	c.Status(http.StatusNoContent)
}

func (h *handlers) me(c *gin.Context) {
	user, err := h.Accounts.Current(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handlers) updateMe(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		badRequest(c, "invalid body")
		return
	}
	user, err := h.Accounts.UpdateProfile(c.Request.Context(), sessionFrom(c), fields)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handlers) addresses(c *gin.Context) {
	out, err := h.Accounts.Addresses(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) updateAddress(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := h.Accounts.UpdateAddress(c.Request.Context(), sessionFrom(c), c.Param("type"), payload); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) orders(c *gin.Context) {
	out, err := h.Accounts.Orders(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createOrder(c *gin.Context) {
	var in backend.OrderRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	order, err := h.Accounts.CreateOrder(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "order": order})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *handlers) registerEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	msg, err := h.Accounts.RegisterEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": msg})
}

func (h *handlers) forgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	msg, err := h.Accounts.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": msg})
}

func (h *handlers) setupPassword(c *gin.Context) {
	var in accountsvc.TokenPasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	msg, err := h.Accounts.SetupPassword(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *handlers) resetPassword(c *gin.Context) {
	var in accountsvc.TokenPasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	msg, err := h.Accounts.ResetPassword(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
