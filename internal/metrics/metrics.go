package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks API latency per matched route
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// AppointmentBookings counts booking attempts by outcome
	AppointmentBookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_bookings_total",
			Help: "Appointment booking attempts by result",
		},
		[]string{"result"}, // created, slot_full, rejected, error
	)

	// RewardRedemptions counts redemption attempts by outcome
	RewardRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_redemptions_total",
			Help: "Reward redemption attempts by result",
		},
		[]string{"result"}, // redeemed, rejected, error
	)

	// RedemptionDuration tracks the latency of the redemption transaction
	RedemptionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reward_redemption_duration_seconds",
			Help: "Duration of reward redemptions in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
			},
		},
		[]string{"status"},
	)
)

func RecordBooking(result string) {
	AppointmentBookings.WithLabelValues(result).Inc()
}

// RecordRedemption records the outcome and duration of one redemption.
func RecordRedemption(result string, duration time.Duration) {
	RewardRedemptions.WithLabelValues(result).Inc()
	RedemptionDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// Middleware observes every request under its route template so ids in the
// path do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
