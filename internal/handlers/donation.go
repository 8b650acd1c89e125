package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-platform/internal/response"
	"blood-platform/internal/service"
)

// DonationHandler serves the caller's donation history and analytics.
type DonationHandler struct {
	Donations *service.Donations
}

func NewDonationHandler(donations *service.Donations) *DonationHandler {
	return &DonationHandler{Donations: donations}
}

func (h *DonationHandler) History(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.Donations.GetDonationHistory(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, history)
}

func (h *DonationHandler) Analytics(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	analytics, err := h.Donations.GetAnalytics(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, analytics)
}

func (h *DonationHandler) NextEligible(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	next, err := h.Donations.NextEligible(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"date":      next.Date.Format("2006-01-02"),
		"daysUntil": next.DaysUntil,
	})
}
