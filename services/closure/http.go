package closure

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router is the interface for a router.
type Router interface {
	Any(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
}

// Closure is the interface for the round closure service.
type Closure interface {
	CloseDueRounds(ctx context.Context) (*Summary, error)
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Closure

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.Any("/run", h.runHandler)
}

type httpHandler struct {
	HTTPOptions
}

func (h *httpHandler) runHandler(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.String(http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := h.Service.CloseDueRounds(c)
	if err != nil {
		log.Printf("Could not close due jornadas: %v\n", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, summary)
}
