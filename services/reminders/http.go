package reminders

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router is the interface for a router.
type Router interface {
	POST(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
}

// Dispatcher is the interface for the reminder dispatcher.
type Dispatcher interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Dispatcher

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.POST("/reminders/run", h.runHandler)
}

type httpHandler struct {
	HTTPOptions
}

func (h *httpHandler) runHandler(c *gin.Context) {
	report, err := h.Service.RunCycle(c)
	if err != nil {
		log.Printf("Manual dispatcher cycle failed: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"due":     report.Due,
		"claimed": report.Claimed,
		"sent":    report.Sent,
		"errored": report.Errored,
		"expired": report.Expired,
		"pruned":  report.Pruned,
	})
}
