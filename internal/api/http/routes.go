package httpapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/skialp/skialp-backend/internal/report"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
//
// Both endpoints answer 200 with an {"error": ...} payload on failure. The
// frontend branches on the error field, not the status code; this mirrors
// the contract the service shipped with.
func RegisterRoutes(app *fiber.App, service *report.Service) {
	app.Post("/validate-location", func(c *fiber.Ctx) error {
		var req validateLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return c.JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.JSON(fiber.Map{"error": "query is required"})
		}

		loc, err := service.ValidateLocation(c.Context(), req.Query)
		if err != nil {
			return c.JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"location": loc})
	})

	app.Get("/report", func(c *fiber.Ctx) error {
		req := report.Request{
			Location: c.Query("location"),
			Lat:      queryFloat(c, "lat"),
			Lon:      queryFloat(c, "lon"),
		}

		rep, err := service.BuildReport(c.Context(), req)
		if err != nil {
			return c.JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(rep)
	})
}

// validateLocationRequest is the body of POST /validate-location.
type validateLocationRequest struct {
	Query string `json:"query" validate:"required"`
}

// queryFloat returns nil when the parameter is absent or malformed, so a
// lone or broken coordinate falls back to geocoding instead of silently
// reading as zero.
func queryFloat(c *fiber.Ctx, key string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
