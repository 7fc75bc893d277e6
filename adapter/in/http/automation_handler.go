package http

import (
	"officeflow/core/service/escalation"
	"officeflow/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// AutomationHandler triggers the periodic stages on demand.
type AutomationHandler struct {
	scanner   EscalationScanner
	analytics AnalyticsService
	summaries SummaryService
}

func NewAutomationHandler(scanner EscalationScanner, analytics AnalyticsService, summaries SummaryService) *AutomationHandler {
	return &AutomationHandler{scanner: scanner, analytics: analytics, summaries: summaries}
}

func (h *AutomationHandler) Register(app fiber.Router) {
	app.Post("/escalations/check", h.CheckEscalations)
	app.Post("/analytics/generate", h.GenerateAnalytics)
	app.Get("/analytics/:date", h.GetAnalytics)
	app.Post("/automation/run", h.Run)
	app.Post("/summaries/generate", h.GenerateSummary)
}

type dateRequest struct {
	Date string `json:"date"`
}

type scanResponse struct {
	Success bool `json:"success"`
	escalation.ScanResult
}

func (h *AutomationHandler) CheckEscalations(c *fiber.Ctx) error {
	res, err := h.scanner.Scan(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(scanResponse{Success: true, ScanResult: res})
}

func (h *AutomationHandler) GenerateAnalytics(c *fiber.Ctx) error {
	var req dateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	day, err := parseDay(req.Date, h.analytics.Today)
	if err != nil {
		return err
	}

	snap, err := h.analytics.Generate(c.UserContext(), day)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "metrics": snap})
}

func (h *AutomationHandler) GetAnalytics(c *fiber.Ctx) error {
	day, err := parseDay(c.Params("date"), h.analytics.Today)
	if err != nil {
		return err
	}

	snap, err := h.analytics.Get(c.UserContext(), day)
	if err != nil {
		return err
	}
	if snap == nil {
		return apperr.NotFound("analytics")
	}
	return c.JSON(snap)
}

// Run is the scheduler's unit of work: one escalation sweep followed by a
// recomputation of today's analytics.
func (h *AutomationHandler) Run(c *fiber.Ctx) error {
	res, err := h.scanner.Scan(c.UserContext())
	if err != nil {
		return err
	}
	snap, err := h.analytics.Generate(c.UserContext(), h.analytics.Today())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"escalations": res,
		"metrics":     snap,
	})
}

func (h *AutomationHandler) GenerateSummary(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req dateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	day, err := parseDay(req.Date, utcToday)
	if err != nil {
		return err
	}

	sum, err := h.summaries.Generate(c.UserContext(), userID, day)
	if err != nil {
		return err
	}
	return c.JSON(sum)
}
