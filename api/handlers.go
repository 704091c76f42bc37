package api

import (
	"errors"
	"net/http"

	"controller-go/internal/metrics"
	"controller-go/internal/observability"
	"controller-go/pkg/network"
	"controller-go/pkg/probe"
	"controller-go/pkg/sensor"
	"controller-go/pkg/shutdown"

	"github.com/gin-gonic/gin"
)

const (
	rootBody   = "mSupply FTW!"
	forbidBody = "You have no permissions to access this page"
)

var errHandlerUnavailable = errors.New("handler dependency not configured")

type Handlers struct {
	Device  string
	Link    *network.Link
	Probe   *probe.Result
	Poller  *sensor.Poller
	Signal  *shutdown.Signal
	Traces  *observability.Store
	Alerts  *observability.AlertStore
	Metrics *metrics.Metrics
}

func (h *Handlers) Root(c *gin.Context) error {
	c.String(http.StatusOK, rootBody)
	return nil
}

func (h *Handlers) Bar(c *gin.Context) error {
	c.String(http.StatusForbidden, forbidBody)
	return nil
}

type statusView struct {
	Device    string            `json:"device"`
	Transport string            `json:"transport,omitempty"`
	Lease     map[string]any    `json:"lease,omitempty"`
	Probe     *probe.Result     `json:"probe,omitempty"`
	Readings  []sensor.Reading  `json:"readings"`
	Polls     uint64            `json:"polls"`
	State     string            `json:"state"`
	Shutdown  *shutdown.Request `json:"shutdown,omitempty"`
}

func (h *Handlers) Status(c *gin.Context) error {
	view := statusView{
		Device:   h.Device,
		Probe:    h.Probe,
		Readings: []sensor.Reading{},
		State:    "running",
	}
	if h.Link != nil {
		view.Transport = h.Link.Name()
		view.Lease = h.Link.Lease.Fields()
	}
	if h.Poller != nil {
		view.Readings = h.Poller.Latest()
		view.Polls = h.Poller.Cycles()
	}
	if h.Signal != nil {
		if req, ok := h.Signal.Get(); ok {
			view.State = "shutting_down"
			view.Shutdown = &req
		}
	}
	c.JSON(http.StatusOK, view)
	return nil
}

func (h *Handlers) GetTraces(c *gin.Context) error {
	if h.Traces == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observability disabled"})
		return nil
	}
	c.JSON(http.StatusOK, h.Traces.List())
	return nil
}

func (h *Handlers) GetAlerts(c *gin.Context) error {
	if h.Alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts disabled"})
		return nil
	}
	c.JSON(http.StatusOK, h.Alerts.List())
	return nil
}

// Shutdown asks the coordinator to stop. Only the first request is accepted.
func (h *Handlers) Shutdown(c *gin.Context) error {
	if h.Signal == nil {
		return errHandlerUnavailable
	}
	req := shutdown.Request{Source: "api"}
	if h.Poller != nil {
		req.Readings = h.Poller.Reads()
	}
	if !h.Signal.Set(req) {
		existing, _ := h.Signal.Get()
		c.JSON(http.StatusConflict, gin.H{"error": "shutdown already requested", "shutdown": existing})
		return nil
	}
	accepted, _ := h.Signal.Get()
	c.JSON(http.StatusAccepted, accepted)
	return nil
}
