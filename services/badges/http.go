package badges

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
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
}

// Badges is the interface for the badge notification service.
type Badges interface {
	Notify(ctx context.Context, uid, badgeID string) (int, error)
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Badges

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.POST("/notify", h.notifyHandler)
}

type httpHandler struct {
	HTTPOptions
}

// notifyRequest follows the callable-function envelope: {"data": {...}}.
type notifyRequest struct {
	Data struct {
		BadgeID string `json:"badgeId"`
	} `json:"data"`
}

func (h *httpHandler) notifyHandler(c *gin.Context) {
	uid, _ := auth.UID(c)

	var request notifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		auth.AbortWithError(c, http.StatusBadRequest, "invalid-argument", "malformed request body")
		return
	}

	delivered, err := h.Service.Notify(c, uid, request.Data.BadgeID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			auth.AbortWithError(c, http.StatusUnauthorized, "unauthenticated", err.Error())
		case errors.Is(err, ErrInvalidBadge):
			auth.AbortWithError(c, http.StatusBadRequest, "invalid-argument", err.Error())
		default:
			log.Printf("Could not send badge notification: %v\n", err)
			auth.AbortWithError(c, http.StatusInternalServerError, "internal", "something went wrong")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": gin.H{"delivered": delivered}})
}
