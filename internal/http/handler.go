package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intel-service/internal/config"
	"intel-service/internal/domain/intel"
	"intel-service/internal/hub"
	"intel-service/internal/location"
	"intel-service/internal/repository"
	"intel-service/internal/service"
	"intel-service/internal/vision"
)

type Handler struct {
	matcher *service.MatchService
	graph   *service.GraphService
	cache   *location.Cache
	hub     *hub.Hub
	vision  *vision.Client
	repo    *repository.IntelRepository
	config  *config.Config
	log     zerolog.Logger
}

func NewHandler(
	matcher *service.MatchService,
	graph *service.GraphService,
	cache *location.Cache,
	h *hub.Hub,
	visionClient *vision.Client,
	repo *repository.IntelRepository,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		matcher: matcher,
		graph:   graph,
		cache:   cache,
		hub:     h,
		vision:  visionClient,
		repo:    repo,
		config:  cfg,
		log:     log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	public := r.Group("/api/v1")
	{
		public.POST("/positions", h.updatePosition)
		public.GET("/positions/:unit_id", h.getPosition)
		public.GET("/plates/check/:plate", h.checkPlate)
		public.POST("/plates/vision", h.checkPlateVision)
		public.GET("/intel/network", h.getNetwork)
		public.GET("/events", h.streamEvents)
		public.GET("/incidents", h.searchIncidents)
		public.GET("/stats", h.getStats)
		public.POST("/token", h.login)
	}

	protected := r.Group("/api/v1")
	protected.Use(h.authMiddleware())
	{
		protected.POST("/incidents", h.saveIncident)
		protected.DELETE("/incidents/:id", h.deleteIncident)
		protected.GET("/users", h.listUsers)
		protected.POST("/users", h.createUser)
		protected.DELETE("/users/:id", h.deleteUser)
	}
}

type positionRequest struct {
	UnitID string `json:"unit_id" form:"unit_id"`
	Lat    string `json:"lat" form:"lat" binding:"required"`
	Lon    string `json:"lon" form:"lon" binding:"required"`
}

func (h *Handler) updatePosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if req.UnitID == "" {
		req.UnitID = "Oficial"
	}

	h.cache.UpdatePosition(req.UnitID, req.Lat, req.Lon)

	// Sentinel pings still echo to the displays: the map shows the unit is
	// alive even without a fix.
	h.hub.Broadcast(intel.PositionEvent{
		Type:   intel.EventPosition,
		UnitID: req.UnitID,
		Lat:    req.Lat,
		Lon:    req.Lon,
		Time:   time.Now().Format("15:04:05"),
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getPosition(c *gin.Context) {
	pos := h.cache.Position(c.Param("unit_id"))
	pos.Stale = h.cache.Stale(pos)
	c.JSON(http.StatusOK, pos)
}

func (h *Handler) checkPlate(c *gin.Context) {
	sighting := intel.Sighting{
		RawPlate:   c.Param("plate"),
		Source:     intel.SourceManual,
		ReporterID: c.DefaultQuery("unit_id", "Oficial"),
		Lat:        c.DefaultQuery("lat", "0.0"),
		Lon:        c.DefaultQuery("lon", "0.0"),
	}
	h.runMatch(c, sighting)
}

func (h *Handler) checkPlateVision(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("image file is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("unreadable image"))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("unreadable image"))
		return
	}

	plate, ok := h.vision.Recognize(c.Request.Context(), content)
	if !ok {
		c.JSON(http.StatusOK, intel.MatchResult{
			Outcome: intel.OutcomeClean,
			Plate:   "NO VISIBLE",
			Alerts:  []intel.Alert{},
		})
		return
	}

	sighting := intel.Sighting{
		RawPlate:   plate,
		Source:     intel.SourceVision,
		ReporterID: c.DefaultPostForm("unit_id", "Oficial"),
		Lat:        c.DefaultPostForm("lat", "0.0"),
		Lon:        c.DefaultPostForm("lon", "0.0"),
	}
	h.runMatch(c, sighting)
}

// runMatch executes the match and, on a positive result, pushes the
// critical alert to every connected display with a resolved coordinate.
func (h *Handler) runMatch(c *gin.Context, sighting intel.Sighting) {
	result, err := h.matcher.Match(c.Request.Context(), sighting)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if result.Positive() {
		lat, lon := h.cache.Resolve(sighting.Lat, sighting.Lon, sighting.ReporterID)
		h.hub.Broadcast(intel.AlertEvent{
			Type:   intel.EventCriticalAlert,
			Plate:  result.Plate,
			Lat:    lat,
			Lon:    lon,
			Count:  len(result.Alerts),
			Alerts: result.Alerts,
		})
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) getNetwork(c *gin.Context) {
	graph, err := h.graph.BuildGraph(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (h *Handler) streamEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			return true
		}
	})
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.repo.GetStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return 0, false
	}
	return id, true
}
