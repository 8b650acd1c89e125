package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBooking(t *testing.T) {
	before := testutil.ToFloat64(AppointmentBookings.WithLabelValues("slot_full"))
	RecordBooking("slot_full")
	after := testutil.ToFloat64(AppointmentBookings.WithLabelValues("slot_full"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestRecordRedemption(t *testing.T) {
	before := testutil.ToFloat64(RewardRedemptions.WithLabelValues("redeemed"))
	RecordRedemption("redeemed", 3*time.Millisecond)
	if got := testutil.ToFloat64(RewardRedemptions.WithLabelValues("redeemed")); got-before != 1 {
		t.Errorf("expected one more redemption, got delta %v", got-before)
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.CollectAndCount(RequestDuration)
	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	after := testutil.CollectAndCount(RequestDuration)
	if after-before > 1 {
		t.Errorf("expected a single series for the route template, got %d new", after-before)
	}
}
