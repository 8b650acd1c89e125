package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blood-platform/internal/response"
	"blood-platform/internal/service"
)

type CenterHandler struct {
	Booking *service.Booking
}

func NewCenterHandler(booking *service.Booking) *CenterHandler {
	return &CenterHandler{Booking: booking}
}

func (h *CenterHandler) List(c *gin.Context) {
	centers, err := h.Booking.ListCenters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, centers)
}

func (h *CenterHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	center, err := h.Booking.GetCenter(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, center)
}
