package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
)

const defaultSearchLimit = 8

func (h *handlers) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.Categories.List(c.Request.Context(), sessionFrom(c).Store))
}

// listProducts returns the whole catalog, or search suggestions when q is set.
func (h *handlers) listProducts(c *gin.Context) {
	sess := sessionFrom(c)
	if q, ok := c.GetQuery("q"); ok {
		limit, err := queryInt(c, "limit", defaultSearchLimit)
		if err != nil {
			badRequest(c, "invalid limit")
			return
		}
		items, err := h.Products.Search(c.Request.Context(), sess.Store, q, limit)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}
	items, err := h.Products.List(c.Request.Context(), sess.Store)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) getProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	p, avail, err := h.Cart.Availability(c.Request.Context(), sessionFrom(c).Store, id, c.Query("variant"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p, "availability": avail})
}

func (h *handlers) browse(c *gin.Context) {
	preview, err := queryInt(c, "preview", 0)
	if err != nil || preview < 0 {
		badRequest(c, "invalid preview")
		return
	}
	page, err := h.Browser.Browse(c.Request.Context(), sessionFrom(c), c.Query("category"), preview)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) applyFilters(c *gin.Context) {
	var patch catalog.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid body")
		return
	}
	page, err := h.Browser.ApplyFilters(c.Request.Context(), sessionFrom(c), c.Query("category"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type pageRequest struct {
	Page int `json:"page"`
}

func (h *handlers) setPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	page, err := h.Browser.SetPage(c.Request.Context(), sessionFrom(c), c.Query("category"), req.Page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type scrollRequest struct {
	Y float64 `json:"y"`
}

func (h *handlers) scroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := h.Browser.Scroll(c.Request.Context(), sessionFrom(c), c.Query("category"), req.Y); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) leave(c *gin.Context) {
	h.Browser.Leave(c.Request.Context(), sessionFrom(c).ID)
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
