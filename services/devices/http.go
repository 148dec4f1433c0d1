package devices

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	auth "github.com/nvbf/quiniela/pkg/auth"
)

// Router is the interface for a router.
type Router interface {
	POST(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	DELETE(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
}

// Devices is the interface for the device registry.
type Devices interface {
	Register(ctx context.Context, uid, token, platform string) error
	Unregister(ctx context.Context, uid, token string) error
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Devices

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.POST("", h.registerHandler)
	r.DELETE("/:token", h.unregisterHandler)
}

type httpHandler struct {
	HTTPOptions
}

type registerRequest struct {
	Token      string `json:"token"`
	Plataforma string `json:"plataforma"`
}

func (s *httpHandler) registerHandler(c *gin.Context) {
	uid, ok := auth.UID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		c.Abort()
		return
	}

	var request registerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	if err := s.Service.Register(c, uid, request.Token, request.Plataforma); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

func (s *httpHandler) unregisterHandler(c *gin.Context) {
	uid, ok := auth.UID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		c.Abort()
		return
	}

	if err := s.Service.Unregister(c, uid, c.Param("token")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *httpHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, ErrMissingToken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		c.Abort()
		return
	}
	log.Printf("Device request failed: %v\n", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	c.Abort()
}
