package api

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"github.com/lunarbtc/moon-analyzer/pkg/logger"
	"github.com/lunarbtc/moon-analyzer/pkg/metrics"
)

// MetricsMiddleware records per-route request counts and latencies
// into the shared collectors in pkg/metrics.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		timer := metrics.NewTimer()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		route := c.Route().Path

		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(c.Method(), route, status))
		metrics.APIRequests.WithLabelValues(c.Method(), route, status).Inc()

		return err
	}
}

// RateLimiter caps requests per client IP over a one-minute sliding
// window. Admin reloads and aggregations share the same budget.
func RateLimiter(maxPerMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               maxPerMinute,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:     "too many requests",
				Code:      fiber.StatusTooManyRequests,
				RequestID: getRequestID(c),
				Timestamp: time.Now(),
			})
		},
	})
}

// ErrorHandler converts unhandled errors into the JSON error shape the
// rest of the API uses, logging server-side failures with the request
// id attached.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := "internal server error"
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		if code >= fiber.StatusInternalServerError {
			logger.WithContext(c.Context()).Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(ErrorResponse{
			Error:     message,
			Code:      code,
			RequestID: getRequestID(c),
			Timestamp: time.Now(),
		})
	}
}

// RequestID tags each request with an id, echoed in the response
// header. Locals rides on the fasthttp user values, so
// logger.WithContext(c.Context()) picks the id up downstream.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = newRequestID()
		}

		c.Set("X-Request-ID", requestID)
		c.Locals("requestID", requestID)

		return c.Next()
	}
}

func newRequestID() string {
	return fmt.Sprintf("%x-%s", time.Now().UnixNano(), randomString(8))
}

func randomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
