package http

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/tiling"
)

// trackFormField is the multipart field carrying an uploaded track, GPX or FIT.
const trackFormField = "gpxfile"

// PlansResponse is returned by the create and preview endpoints.
type PlansResponse struct {
	Plans     []*domain.PrefetchPlan `json:"plans"`
	Regions   int                    `json:"regions"`
	TileCount int64                  `json:"tile_count"`
}

func newPlansResponse(plans []*domain.PrefetchPlan) PlansResponse {
	out := PlansResponse{Plans: plans}
	for _, p := range plans {
		out.Regions += len(p.Regions)
		out.TileCount += p.TileCount
	}
	return out
}

// CreatePlanHandler plans, stores and dispatches every track of an uploaded
// GPX or FIT file.
func CreatePlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings, err := settingsFromQuery(c, deps.Defaults)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		name, body, err := readTrackFile(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		defer body.Close()

		plans, err := deps.Plans.CreateFromFile(c.UserContext(), name, body, settings)
		if err != nil {
			return errFromService(c, err, "plan")
		}

		LoggerFromCtx(c.UserContext()).Info("plans created", "count", len(plans), "name", name)
		return c.Status(fiber.StatusCreated).JSON(newPlansResponse(plans))
	}
}

// PreviewPlanHandler plans an uploaded track file without storing or
// dispatching anything.
func PreviewPlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings, err := settingsFromQuery(c, deps.Defaults)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		name, body, err := readTrackFile(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		defer body.Close()

		plans, err := deps.Plans.PreviewFile(c.UserContext(), name, body, settings)
		if err != nil {
			return errFromService(c, err, "plan")
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(newPlansResponse(plans))
	}
}

// ListPlansHandler returns one page of stored plans, newest first. Regions
// are left out; fetch a single plan to get them.
func ListPlansHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := ParsePage(c, 20, 100)

		plans, total, err := deps.Plans.List(c.UserContext(), pg.Limit, pg.Offset)
		if err != nil {
			return errFromService(c, err, "plan")
		}
		if plans == nil {
			plans = []domain.PrefetchPlan{}
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: plans, Pagination: pg})
	}
}

// GetPlanHandler returns a single plan with its regions.
func GetPlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "plan id is required")
		}
		plan, err := deps.Plans.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromService(c, err, "plan")
		}
		return c.JSON(plan)
	}
}

// DeletePlanHandler removes a plan and its progress reports.
func DeletePlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "plan id is required")
		}
		if err := deps.Plans.Delete(c.UserContext(), id); err != nil {
			return errFromService(c, err, "plan")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PlanOutlineHandler returns the plan's regions as a GeoJSON FeatureCollection,
// ready to draw on a map.
func PlanOutlineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plan, err := deps.Plans.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromService(c, err, "plan")
		}

		if err := c.JSON(tiling.RegionCollection(plan)); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return nil
	}
}

// GetProgressHandler returns the aggregate download progress of a plan.
func GetProgressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := deps.Progress.Summary(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromService(c, err, "plan")
		}
		return c.JSON(summary)
	}
}

// ReportProgressHandler records a region progress report. The plan ID in the
// path wins over any plan_id in the body.
func ReportProgressHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var report domain.Progress
		if err := c.BodyParser(&report); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		report.PlanID = c.Params("id")

		summary, err := deps.Progress.Record(c.UserContext(), report)
		if err != nil {
			return errFromService(c, err, "plan")
		}
		return c.JSON(summary)
	}
}

// readTrackFile returns the uploaded track file and a name for it. A multipart upload
// in the gpxfile field wins; otherwise the raw request body is used.
func readTrackFile(c *fiber.Ctx) (string, io.ReadCloser, error) {
	name := c.Query("name")

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile(trackFormField)
		if err != nil {
			return "", nil, fmt.Errorf("multipart upload needs a %q file field", trackFormField)
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, fmt.Errorf("open upload: %w", err)
		}
		if name == "" {
			name = strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
		}
		return name, f, nil
	}

	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil, fmt.Errorf("request body must be a GPX or FIT file")
	}
	// Body is only valid for the handler's lifetime, so copy it.
	return name, io.NopCloser(bytes.NewReader(append([]byte(nil), body...))), nil
}

// settingsFromQuery overlays min_distance, offset, min_zoom and max_zoom on
// the defaults. Range checks are left to the planner.
func settingsFromQuery(c *fiber.Ctx, defaults domain.PlanSettings) (domain.PlanSettings, error) {
	s := defaults

	floats := []struct {
		key string
		dst *float64
	}{
		{"min_distance", &s.MinDistanceMeters},
		{"offset", &s.OffsetMeters},
	}
	for _, f := range floats {
		if raw := c.Query(f.key); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return s, fmt.Errorf("%s must be a number of meters", f.key)
			}
			*f.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"min_zoom", &s.MinZoom},
		{"max_zoom", &s.MaxZoom},
	}
	for _, f := range ints {
		if raw := c.Query(f.key); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return s, fmt.Errorf("%s must be an integer", f.key)
			}
			*f.dst = v
		}
	}

	return s, nil
}
