package httpapi

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/aellstrom/pollenpulsen/internal/pollen"
)

// Deps bundles everything the HTTP layer projects to clients.
type Deps struct {
	Coordinator  *pollen.Coordinator
	Client       *pollen.Client
	Forecast     *pollen.ForecastView
	Measurements map[string]*pollen.MeasurementView // keyed by pollen type id
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"availability": deps.Forecast.Availability(),
			"region":       deps.Forecast.RegionName(),
		}

		if snap := deps.Coordinator.Snapshot(); snap != nil {
			start, end := deps.Forecast.ValidityWindow()
			resp["text"] = deps.Forecast.Summary()
			resp["start_date"] = start
			resp["end_date"] = end
			resp["levels"] = deps.Forecast.Entries()
			resp["degraded"] = deps.Coordinator.State() == pollen.StateDegraded
			resp["fetched_at"] = snap.FetchedAt
		}

		return c.JSON(resp)
	})

	v1.Get("/measurements", func(c *fiber.Ctx) error {
		out := make([]measurementResponse, 0, len(deps.Measurements))
		for _, view := range deps.Measurements {
			out = append(out, newMeasurementResponse(view))
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Type != out[j].Type {
				return out[i].Type < out[j].Type
			}
			return out[i].TypeID < out[j].TypeID
		})
		return c.JSON(out)
	})

	v1.Get("/measurements/:id", func(c *fiber.Ctx) error {
		view, ok := deps.Measurements[c.Params("id")]
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "pollen type not configured")
		}
		return c.JSON(newMeasurementResponse(view))
	})

	v1.Get("/regions", func(c *fiber.Ctx) error {
		regions, err := deps.Client.FetchRegions(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch regions")
		}
		return c.JSON(sortCatalog(regions))
	})

	v1.Get("/pollen-types", func(c *fiber.Ctx) error {
		types, err := deps.Client.FetchPollenTypes(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch pollen types")
		}
		return c.JSON(sortCatalog(types))
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		if err := deps.Coordinator.Refresh(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{
			"state": deps.Coordinator.State().String(),
		})
	})
}

// measurementResponse is the JSON shape of a single measurement view.
type measurementResponse struct {
	TypeID      string `json:"type_id"`
	Type        string `json:"type"`
	Region      string `json:"region"`
	Available   bool   `json:"available"`
	Level       *int   `json:"level"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

func newMeasurementResponse(view *pollen.MeasurementView) measurementResponse {
	start, end := view.ValidityWindow()
	return measurementResponse{
		TypeID:      view.TypeID(),
		Type:        view.TypeName(),
		Region:      view.RegionName(),
		Available:   view.Available(),
		Level:       view.Level(),
		Description: view.Description(),
		StartDate:   start,
		EndDate:     end,
	}
}

// catalogEntry is one id/name pair of a reference catalog.
type catalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// sortCatalog renders a catalog as a list sorted by display name, the order
// a region or type picker would present it in.
func sortCatalog(catalog map[string]string) []catalogEntry {
	out := make([]catalogEntry, 0, len(catalog))
	for id, name := range catalog {
		out = append(out, catalogEntry{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
