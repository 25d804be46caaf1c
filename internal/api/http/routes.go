package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
)

const defaultHistoryLimit = 24

var validate = validator.New()

// RegisterRoutes wires the read-only history handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *aqi.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/aqi/latest", func(c *fiber.Ctx) error {
		rec, ok, err := service.Latest(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load latest reading")
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no readings stored yet")
		}
		return c.JSON(recordView(rec))
	})

	v1.Get("/aqi/history", func(c *fiber.Ctx) error {
		var q historyQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if q.Limit == 0 {
			q.Limit = defaultHistoryLimit
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		recs, err := service.History(c.UserContext(), q.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load history")
		}

		views := make([]recordResponse, 0, len(recs))
		for _, r := range recs {
			views = append(views, recordView(r))
		}
		return c.JSON(fiber.Map{
			"limit":   q.Limit,
			"records": views,
		})
	})

	v1.Get("/aqi/levels", func(c *fiber.Ctx) error {
		return c.JSON(aqi.Levels())
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Limit int `query:"limit" validate:"min=1,max=1000"`
}

type recordResponse struct {
	aqi.Record
	// Severity is the index of the level in the category table, 0 = Good.
	Severity int `json:"severity"`
}

func recordView(r aqi.Record) recordResponse {
	severity := 0
	for i, l := range aqi.Levels() {
		if l.Label == r.Level {
			severity = i
			break
		}
	}
	return recordResponse{Record: r, Severity: severity}
}
