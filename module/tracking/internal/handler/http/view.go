package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
	"github.com/nandanugg/apadbandhan/module/tracking/internal/bus"
	"github.com/nandanugg/apadbandhan/module/tracking/service"
)

type viewService interface {
	Open(ctx context.Context, rawDeviceID any) (*service.DeviceView, error)
	Get(viewID string) (*service.DeviceView, error)
	Geolocation(viewID string) (*service.BrowserGeolocation, error)
	Close(viewID string) error
}

type notificationSource interface {
	Subscribe(topic string) bus.Subscription
	Unsubscribe(ch bus.Subscription, topics ...string)
}

type openViewRequest struct {
	DeviceID json.RawMessage `json:"device_id"`
}

type coordinateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geolocationRequest struct {
	Permission domain.GeoPermission `json:"permission"`
	Live       *coordinateRequest   `json:"live,omitempty"`
	LastKnown  *coordinateRequest   `json:"last_known,omitempty"`
}

type ViewHandler struct {
	views  viewService
	events notificationSource
}

func NewViewHandler(views viewService, events notificationSource) *ViewHandler {
	return &ViewHandler{views: views, events: events}
}

func (h *ViewHandler) Register(r *gin.RouterGroup) {
	r.POST("/views", h.OpenView)
	r.GET("/views/:view_id", h.GetView)
	r.DELETE("/views/:view_id", h.CloseView)
	r.GET("/views/:view_id/route", h.GetRoute)
	r.POST("/views/:view_id/refresh", h.Refresh)
	r.POST("/views/:view_id/backfill", h.Backfill)
	r.PUT("/views/:view_id/geolocation", h.UpdateGeolocation)
	r.POST("/views/:view_id/sos", h.TriggerSOS)
	r.GET("/views/:view_id/events", h.Events)
}

func (h *ViewHandler) OpenView(c *gin.Context) {
	var req openViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.views.Open(c.Request.Context(), req.DeviceID)
	switch {
	case errors.Is(err, domain.ErrDeviceIDMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	case errors.Is(err, domain.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open view"})
		return
	}

	c.JSON(http.StatusCreated, view.Snapshot())
}

func (h *ViewHandler) GetView(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view.Snapshot())
}

func (h *ViewHandler) CloseView(c *gin.Context) {
	if err := h.views.Close(c.Param("view_id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ViewHandler) GetRoute(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}

	filter := domain.DefaultRouteFilter()
	toggles := []struct {
		param string
		dst   *bool
	}{
		{"start", &filter.Start},
		{"waypoints", &filter.Waypoints},
		{"sos", &filter.SOS},
		{"current", &filter.Current},
		{"line", &filter.Line},
	}
	for _, t := range toggles {
		raw, present := c.GetQuery(t.param)
		if !present {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + t.param + " parameter"})
			return
		}
		*t.dst = v
	}

	c.JSON(http.StatusOK, view.Route(filter))
}

func (h *ViewHandler) Refresh(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	err := view.RefreshNow(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrViewClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
	case err != nil:
		// the previous history is kept; report it without failing the view
		c.JSON(http.StatusOK, gin.H{"refreshed": false, "history": view.Snapshot().History})
	default:
		c.JSON(http.StatusOK, gin.H{"refreshed": true, "history": view.Snapshot().History})
	}
}

func (h *ViewHandler) Backfill(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = v
	}

	// geocoding is throttled, so the backfill outlives the request
	ctx := context.WithoutCancel(c.Request.Context())
	go func() { _ = view.BackfillAddresses(ctx, limit) }()
	c.JSON(http.StatusAccepted, view.Snapshot().History)
}

func (h *ViewHandler) UpdateGeolocation(c *gin.Context) {
	geo, err := h.views.Geolocation(c.Param("view_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}

	var req geolocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.LastKnown != nil {
		if err := geo.SeedLastKnown(domain.Coordinate{Lat: req.LastKnown.Latitude, Lon: req.LastKnown.Longitude}); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_known coordinate"})
			return
		}
	}
	if req.Permission != "" {
		if err := geo.SetPermission(req.Permission); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permission"})
			return
		}
	}
	if req.Live != nil {
		if err := geo.UpdateFix(domain.Coordinate{Lat: req.Live.Latitude, Lon: req.Live.Longitude}); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid live coordinate"})
			return
		}
	}

	h.GetView(c)
}

func (h *ViewHandler) TriggerSOS(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}

	outcome, err := view.TriggerSOS(c.Request.Context())
	var dispatchErr *service.DispatchError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, outcome)
	case errors.Is(err, domain.ErrSOSInFlight):
		c.JSON(http.StatusAccepted, gin.H{"status": "in_progress"})
	case errors.Is(err, domain.ErrLocationUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "location unavailable"})
	case errors.Is(err, domain.ErrViewClosed):
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
	case errors.As(err, &dispatchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": dispatchErr.Message, "stage": dispatchErr.Stage})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send SOS"})
	}
}

// Events streams the view's notifications as server-sent events until the
// client goes away.
func (h *ViewHandler) Events(c *gin.Context) {
	viewID := c.Param("view_id")
	if _, ok := h.lookup(c); !ok {
		return
	}

	sub := h.events.Subscribe(bus.NotificationTopic(viewID))
	defer func() {
		go func() {
			for range sub {
			}
		}()
		h.events.Unsubscribe(sub)
	}()

	c.Stream(func(_ io.Writer) bool {
		select {
		case msg, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent("notification", msg)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *ViewHandler) lookup(c *gin.Context) (*service.DeviceView, bool) {
	view, err := h.views.Get(c.Param("view_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return nil, false
	}
	return view, true
}
