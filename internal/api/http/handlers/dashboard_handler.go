package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
)

// DashboardHandler serves the customer and mitra home views.
type DashboardHandler struct {
	dashboard DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Customer GET /dashboard.
func (h *DashboardHandler) Customer(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.Customer(c.UserContext(), p.Identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CustomerDashboardResponse{
		Email:   view.Email,
		Profile: dto.NewProfileResponse(view.Profile),
		Orders:  dto.NewOrderResponses(view.Orders),
	}})
}

// Mitra GET /mitra.
func (h *DashboardHandler) Mitra(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.dashboard.Mitra(c.UserContext(), p.Identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MitraHomeResponse{
		Mitra:      dto.NewMitraResponse(view.Mitra, view.Profile),
		CanOperate: view.CanOperate,
	}})
}
