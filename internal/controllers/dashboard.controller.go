package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/Shivendrahari/SignalSync/internal/logger"
	"github.com/Shivendrahari/SignalSync/internal/middleware"
	"github.com/Shivendrahari/SignalSync/internal/models"
	"github.com/Shivendrahari/SignalSync/internal/services"
	"github.com/gin-gonic/gin"
)

// DeviceLister lists the devices offered in the selector
type DeviceLister interface {
	Devices(ctx context.Context) ([]models.Device, error)
}

// DashboardController serves the dashboard page and its filter commands
type DashboardController struct {
	devices   DeviceLister
	validator *middleware.InputValidator
}

// NewDashboardController creates the controller; devices may be nil when
// the performance API is remote
func NewDashboardController(devices DeviceLister) *DashboardController {
	return &DashboardController{
		devices:   devices,
		validator: middleware.NewInputValidator(),
	}
}

type devicesRequest struct {
	DeviceIDs []string `json:"device_ids"`
}

type metricRequest struct {
	Metric models.Metric `json:"metric" binding:"required"`
}

type timeRangeRequest struct {
	Days int `json:"days"`
}

type customRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func dashboardFor(c *gin.Context) (*services.Dashboard, bool) {
	sess := middleware.CurrentSession(c)
	if sess == nil || sess.Dashboard == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrSessionNotFound.Error()})
		return nil, false
	}
	return sess.Dashboard, true
}

// respond maps a command result onto the HTTP response
func respond(c *gin.Context, snap services.Snapshot, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, snap)
	case services.IsUserError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "state": snap})
	case services.IsFetchError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": services.AlertFetchFailed, "state": snap})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		logger.Error("[DASH] Command failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "state": snap})
	}
}

// Page renders the dashboard
func (dc *DashboardController) Page(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}

	var devices []models.Device
	if dc.devices != nil {
		list, err := dc.devices.Devices(c.Request.Context())
		if err != nil {
			logger.Warn("[DASH] Could not list devices: %v", err)
		}
		devices = list
	}

	snap := d.Snapshot()
	sess := middleware.CurrentSession(c)
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"State":     snap,
		"Devices":   pageDevices(devices, snap.Filter.SelectedDevices),
		"Form":      newFilterForm(snap.Filter),
		"Metrics":   models.Metrics,
		"CSRFToken": sess.CSRFToken,
	})
}

type rangeOption struct {
	Value string
	Label string
}

// filterForm is the filter state in the shape the page's controls need
type filterForm struct {
	Selected  map[string]bool
	Days      string
	Ranges    []rangeOption
	StartDate string
	EndDate   string
}

var presetRanges = []rangeOption{
	{Value: "1", Label: "Last 24 hours"},
	{Value: "7", Label: "Last 7 days"},
	{Value: "30", Label: "Last 30 days"},
	{Value: "90", Label: "Last 90 days"},
}

func newFilterForm(f models.FilterState) filterForm {
	form := filterForm{Selected: make(map[string]bool, len(f.SelectedDevices))}
	for _, id := range f.SelectedDevices {
		form.Selected[id] = true
	}

	form.Ranges = append(form.Ranges, presetRanges...)
	if f.TimeRangeDays == 0 && f.CustomRange != nil {
		form.Days = "custom"
		form.StartDate = f.CustomRange.Start.Format(models.DateLayout)
		form.EndDate = f.CustomRange.End.Format(models.DateLayout)
	} else {
		form.Days = strconv.Itoa(f.TimeRangeDays)
		if !slices.ContainsFunc(presetRanges, func(o rangeOption) bool { return o.Value == form.Days }) {
			form.Ranges = append(form.Ranges, rangeOption{Value: form.Days, Label: fmt.Sprintf("Last %d days", f.TimeRangeDays)})
		}
	}
	form.Ranges = append(form.Ranges, rangeOption{Value: "custom", Label: "Custom"})
	return form
}

// pageDevices lists the selectable devices plus any selected id the lister
// does not know, so the selection survives a reload
func pageDevices(listed []models.Device, selected []string) []models.Device {
	out := append([]models.Device(nil), listed...)
	for _, id := range selected {
		if !slices.ContainsFunc(listed, func(d models.Device) bool { return d.ID == id }) {
			out = append(out, models.Device{ID: id, Name: id})
		}
	}
	return out
}

// State returns the current snapshot
func (dc *DashboardController) State(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, d.Snapshot())
}

// SetDevices replaces the device selection
func (dc *DashboardController) SetDevices(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	var req devicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	for _, id := range req.DeviceIDs {
		if !dc.validator.ValidateDeviceID(id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id format"})
			return
		}
	}
	snap, err := d.SetDevices(c.Request.Context(), req.DeviceIDs)
	respond(c, snap, err)
}

// RemoveDevice drops one device from the selection
func (dc *DashboardController) RemoveDevice(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	snap, err := d.RemoveDevice(c.Request.Context(), c.Param("id"))
	respond(c, snap, err)
}

// SetMetric switches the charted metric
func (dc *DashboardController) SetMetric(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	var req metricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric is required"})
		return
	}
	snap, err := d.SetMetric(c.Request.Context(), req.Metric)
	respond(c, snap, err)
}

// SetTimeRange selects a preset number of days
func (dc *DashboardController) SetTimeRange(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	var req timeRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := d.SetTimeRange(c.Request.Context(), req.Days)
	respond(c, snap, err)
}

// SetCustomRange selects an explicit date range
func (dc *DashboardController) SetCustomRange(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	var req customRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := d.SetCustomRange(c.Request.Context(), req.StartDate, req.EndDate)
	respond(c, snap, err)
}

// Refresh reloads data for the current filter
func (dc *DashboardController) Refresh(c *gin.Context) {
	d, ok := dashboardFor(c)
	if !ok {
		return
	}
	snap, err := d.Refresh(c.Request.Context())
	respond(c, snap, err)
}
