package admin

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
	POST(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	PUT(relativePath string, handlers ...gin.HandlerFunc) gin.IRoutes
	Use(middleware ...gin.HandlerFunc) gin.IRoutes
}

// Admin is the interface for the admin service.
type Admin interface {
	ScheduleReminder(ctx context.Context, request ReminderRequest) (*store.Reminder, error)
	SaveRound(ctx context.Context, round int, request RoundRequest) error
	PublishResults(ctx context.Context, round int, results []string) error
	MigratePredictions(ctx context.Context) (*MigrationReport, error)
}

// HTTPOptions contains all the options needed for the HTTP handler.
type HTTPOptions struct {

	// The service we provides the HTTP transport for.
	Service Admin

	// The router instance to configure the HTTP routes.
	Router Router
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(opts HTTPOptions) {
	r := opts.Router
	h := &httpHandler{opts}
	r.POST("/reminders", h.reminderHandler)
	r.PUT("/jornadas/:jornada", h.roundHandler)
	r.PUT("/jornadas/:jornada/resultados", h.resultsHandler)
	r.POST("/migrate/quinielas", h.migrateHandler)
}

type httpHandler struct {
	HTTPOptions
}

func (s *httpHandler) reminderHandler(c *gin.Context) {
	var request ReminderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	reminder, err := s.Service.ScheduleReminder(c, request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": reminder.ID, "status": reminder.Status})
}

func (s *httpHandler) roundHandler(c *gin.Context) {
	round, err := strconv.Atoi(c.Param("jornada"))
	if err != nil {
		respondError(c, ErrInvalidRound)
		return
	}
	var request RoundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	if err := s.Service.SaveRound(c, round, request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jornada": round})
}

func (s *httpHandler) resultsHandler(c *gin.Context) {
	round, err := strconv.Atoi(c.Param("jornada"))
	if err != nil {
		respondError(c, ErrInvalidRound)
		return
	}
	var request ResultsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		c.Abort()
		return
	}

	if err := s.Service.PublishResults(c, round, request.Resultados); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jornada": round})
}

func (s *httpHandler) migrateHandler(c *gin.Context) {
	report, err := s.Service.MigratePredictions(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "jornada not found"})
	case errors.Is(err, ErrInvalidSendAt), errors.Is(err, ErrInvalidClosingTime),
		errors.Is(err, ErrInvalidResults), errors.Is(err, ErrInvalidRound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Admin request failed: %v\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
	c.Abort()
}
