package settlement

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	store "github.com/nvbf/quiniela/repos/store"
)

// Router is the interface for a router.
type Router interface {
	GET(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	POST(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
	Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup
}

// Settlement is the interface for the settlement service.
type Settlement interface {
	Settle(ctx context.Context, uid string, round int) (*Result, error)
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Settlement

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.GET("/points", h.pointsHandler)
}

type httpHandler struct {
	HTTPOptions
}

func (h *httpHandler) pointsHandler(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		c.String(http.StatusBadRequest, "missing uid")
		return
	}
	round, err := strconv.Atoi(c.Query("jornada"))
	if err != nil || round <= 0 {
		c.String(http.StatusBadRequest, "missing or invalid jornada")
		return
	}

	result, err := h.Service.Settle(c, uid, round)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		log.Printf("Could not settle %s/%d: %v\n", uid, round, err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, result)
}
