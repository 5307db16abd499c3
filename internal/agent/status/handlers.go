package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	p Provider
}

func NewHandlers(p Provider) *Handlers {
	return &Handlers{p: p}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Stats(c *gin.Context) {
	if h.p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "会话未启动"})
		return
	}
	c.JSON(http.StatusOK, h.p.Snapshot())
}
