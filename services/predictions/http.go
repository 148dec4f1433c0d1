package predictions

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auth "github.com/nvbf/quiniela/pkg/auth"
	store "github.com/nvbf/quiniela/repos/store"
)

// Router is the interface for a router.
type Router interface {
	GET(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	PUT(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
}

// Predictions is the interface for the prediction service.
type Predictions interface {
	Open(ctx context.Context, uid string, round int) (*store.Prediction, error)
	Save(ctx context.Context, uid string, round int, picks []string, submit bool) (*store.Prediction, error)
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Predictions

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.GET("/:jornada", h.openHandler)
	r.PUT("/:jornada", h.saveHandler)
}

type httpHandler struct {
	HTTPOptions
}

type saveRequest struct {
	Pronosticos []string `json:"pronosticos"`
	Enviar      bool     `json:"enviar"`
}

type predictionResponse struct {
	Jornada     int       `json:"jornada"`
	Pronosticos []*string `json:"pronosticos"`
	Estado      string    `json:"estado"`
	Enviada     bool      `json:"enviada"`
	Puntos      int       `json:"puntos"`
}

func toResponse(p *store.Prediction) predictionResponse {
	picks := make([]*string, len(p.Pronosticos))
	for i := range p.Pronosticos {
		if p.Pronosticos[i] != "" {
			picks[i] = &p.Pronosticos[i]
		}
	}
	return predictionResponse{
		Jornada:     p.Jornada,
		Pronosticos: picks,
		Estado:      p.Estado,
		Enviada:     p.Enviada,
		Puntos:      p.Puntos,
	}
}

func (h *httpHandler) openHandler(c *gin.Context) {
	uid, round, ok := callerAndRound(c)
	if !ok {
		return
	}
	prediction, err := h.Service.Open(c, uid, round)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(prediction))
}

func (h *httpHandler) saveHandler(c *gin.Context) {
	uid, round, ok := callerAndRound(c)
	if !ok {
		return
	}
	var request saveRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prediction, err := h.Service.Save(c, uid, round, request.Pronosticos, request.Enviar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(prediction))
}

func callerAndRound(c *gin.Context) (string, int, bool) {
	uid, ok := auth.UID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return "", 0, false
	}
	round, err := strconv.Atoi(c.Param("jornada"))
	if err != nil || round <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid jornada"})
		return "", 0, false
	}
	return uid, round, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "jornada not found"})
	case errors.Is(err, store.ErrInvalidPrediction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrPredictionClosed), errors.Is(err, store.ErrRoundClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("Prediction request failed: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}
