package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/store"
)

type stateResponse struct {
	Cart       cartsvc.Summary   `json:"cart"`
	User       *domain.User      `json:"user"`
	Categories []domain.Category `json:"categories"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	Toast      store.Toast       `json:"toast"`
	Search     string            `json:"search"`
}

func (h *handlers) createSession(c *gin.Context) {
	id, err := h.Sessions.Issue(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header(sessionHeader, id)
	c.JSON(http.StatusCreated, gin.H{"sessionId": id})
}

// sessionState returns the session's client state, restoring the user
// from a stored token on first access.
func (h *handlers) sessionState(c *gin.Context) {
	sess := sessionFrom(c)
	if _, err := h.Accounts.Current(c.Request.Context(), sess); err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		logging.FromContext(c, h.logger).Warn("restore user failed", zap.String("session", sess.ID), zap.Error(err))
	}
	snap := sess.Store.Snapshot()
	c.JSON(http.StatusOK, stateResponse{
		Cart:       cartsvc.Summarize(snap.Cart),
		User:       snap.User,
		Categories: snap.Categories,
		Loading:    snap.Loading,
		Error:      snap.Error,
		Toast:      snap.Toast,
		Search:     snap.Search,
	})
}

func (h *handlers) hideToast(c *gin.Context) {
	sessionFrom(c).Store.HideToast()
	c.Status(http.StatusNoContent)
}
