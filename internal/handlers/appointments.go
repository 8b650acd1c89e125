package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-platform/internal/apperr"
	"blood-platform/internal/models"
	"blood-platform/internal/response"
	"blood-platform/internal/service"
)

type AppointmentHandler struct {
	Booking   *service.Booking
	Donations *service.Donations
}

func NewAppointmentHandler(booking *service.Booking, donations *service.Donations) *AppointmentHandler {
	return &AppointmentHandler{Booking: booking, Donations: donations}
}

type CreateAppointmentRequest struct {
	CenterID     string `json:"centerId" binding:"required"`
	DonationType string `json:"donationType" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Notes        string `json:"notes"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CompleteAppointmentRequest struct {
	VolumeML int `json:"volumeMl"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req CreateAppointmentRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}
	centerID, err := parseUUID(req.CenterID, "centerId")
	if err != nil {
		response.Error(c, err)
		return
	}

	appt, err := h.Booking.CreateAppointment(c.Request.Context(), userID, service.AppointmentRequest{
		CenterID:     centerID,
		DonationType: models.DonationType(req.DonationType),
		Date:         req.Date,
		Time:         req.Time,
		Notes:        req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, appt)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	appts, err := h.Booking.ListAppointments(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, appts)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req CancelAppointmentRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.Error(c, err)
		return
	}

	appt, err := h.Booking.CancelAppointment(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, appt)
}

// Availability answers GET /appointments/availability?centerId=&date=&donationType=.
func (h *AppointmentHandler) Availability(c *gin.Context) {
	centerID, err := parseUUID(c.Query("centerId"), "centerId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if dt := c.Query("donationType"); dt != "" && !models.DonationType(dt).Valid() {
		response.Error(c, apperr.Validation("donationType", "unknown donation type %q", dt))
		return
	}
	date := c.Query("date")
	if date == "" {
		response.Error(c, apperr.Validation("date", "date is required"))
		return
	}

	avail, err := h.Booking.CheckAvailability(c.Request.Context(), centerID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, avail)
}

// UpdateStatus is the staff transition endpoint (confirm, no-show, cancel).
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req UpdateStatusRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.Error(c, err)
		return
	}

	appt, err := h.Booking.UpdateStatus(c.Request.Context(), id, models.AppointmentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, appt)
}

// Complete records the donation for an attended appointment.
func (h *AppointmentHandler) Complete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req CompleteAppointmentRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.Error(c, err)
		return
	}

	donation, err := h.Donations.CompleteAppointment(c.Request.Context(), id, req.VolumeML)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, donation)
}
