package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/service"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
	"github.com/spec-kit/mitra-marketplace/pkg/util/validation"
)

// AdminHandler serves the admin back office.
type AdminHandler struct {
	verification VerificationService
	users        UserAdminService
	stats        StatsService
	catalog      CatalogService
	promos       PromoService
	orders       OrderService
	finance      FinanceService
}

// AdminServices bundles the admin handler collaborators.
type AdminServices struct {
	Verification VerificationService
	Users        UserAdminService
	Stats        StatsService
	Catalog      CatalogService
	Promos       PromoService
	Orders       OrderService
	Finance      FinanceService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(s AdminServices) *AdminHandler {
	return &AdminHandler{
		verification: s.Verification,
		users:        s.Users,
		stats:        s.Stats,
		catalog:      s.Catalog,
		promos:       s.Promos,
		orders:       s.Orders,
		finance:      s.Finance,
	}
}

// Stats GET /admin.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ListMitra GET /admin/mitra-verification. The pending filter is served from
// the cached pending-mitra view.
func (h *AdminHandler) ListMitra(c *fiber.Ctx) error {
	var status *domain.VerificationStatus
	if raw := c.Query("status"); raw != "" && raw != "all" {
		parsed, ok := domain.ParseVerificationStatus(raw)
		if !ok {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": raw})
		}
		status = &parsed
	}
	var (
		list []domain.MitraWithProfile
		err  error
	)
	if status != nil && *status == domain.VerificationPending {
		list, err = h.verification.Pending(c.UserContext())
	} else {
		list, err = h.verification.List(c.UserContext(), status)
	}
	if err != nil {
		return err
	}
	items := make([]dto.MitraResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewMitraResponse(&list[i].MitraProfile, list[i].Profile))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ApproveMitra POST /admin/mitra-verification/:id/approve.
func (h *AdminHandler) ApproveMitra(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	updated, err := h.verification.Approve(c.UserContext(), actor.Identity.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMitraResponse(updated, nil)})
}

// RejectMitra POST /admin/mitra-verification/:id/reject.
func (h *AdminHandler) RejectMitra(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	updated, err := h.verification.Reject(c.UserContext(), actor.Identity.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMitraResponse(updated, nil)})
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter := service.UserFilter{Search: c.Query("search")}
	if raw := c.Query("role"); raw != "" && raw != "all" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid role filter", map[string]any{"role": raw})
		}
		filter.Role = &role
	}
	listing, err := h.users.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": listing})
}

// UpdateUserRole PUT /admin/users/:id/role.
func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Default().Struct(req); err != nil {
		return err
	}
	role := domain.Role(req.Role)
	if err := h.users.UpdateRole(c.UserContext(), actor.Identity.ID, c.Params("id"), role); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_id": c.Params("id"), "role": role}})
}

// ListServices GET /admin/services.
func (h *AdminHandler) ListServices(c *fiber.Ctx) error {
	services, err := h.catalog.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.ServiceResponse, 0, len(services))
	for i := range services {
		items = append(items, dto.NewServiceResponse(&services[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateService POST /admin/services.
func (h *AdminHandler) CreateService(c *fiber.Ctx) error {
	input, err := serviceInput(c)
	if err != nil {
		return err
	}
	created, err := h.catalog.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewServiceResponse(created)})
}

// UpdateService PUT /admin/services/:id.
func (h *AdminHandler) UpdateService(c *fiber.Ctx) error {
	input, err := serviceInput(c)
	if err != nil {
		return err
	}
	updated, err := h.catalog.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceResponse(updated)})
}

// DeleteService DELETE /admin/services/:id.
func (h *AdminHandler) DeleteService(c *fiber.Ctx) error {
	if err := h.catalog.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPromos GET /admin/promos.
func (h *AdminHandler) ListPromos(c *fiber.Ctx) error {
	promos, err := h.promos.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PromoResponse, 0, len(promos))
	for i := range promos {
		items = append(items, dto.NewPromoResponse(&promos[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreatePromo POST /admin/promos.
func (h *AdminHandler) CreatePromo(c *fiber.Ctx) error {
	input, err := promoInput(c)
	if err != nil {
		return err
	}
	created, err := h.promos.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewPromoResponse(created)})
}

// UpdatePromo PUT /admin/promos/:id.
func (h *AdminHandler) UpdatePromo(c *fiber.Ctx) error {
	input, err := promoInput(c)
	if err != nil {
		return err
	}
	updated, err := h.promos.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPromoResponse(updated)})
}

// DeletePromo DELETE /admin/promos/:id.
func (h *AdminHandler) DeletePromo(c *fiber.Ctx) error {
	if err := h.promos.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListOrders GET /admin/orders.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	var status *domain.OrderStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		parsed, ok := domain.ParseOrderStatus(raw)
		if !ok {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": raw})
		}
		status = &parsed
	}
	orders, err := h.orders.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponses(orders)})
}

// Finance GET /admin/finance.
func (h *AdminHandler) Finance(c *fiber.Ctx) error {
	summary, err := h.finance.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

func serviceInput(c *fiber.Ctx) (service.ServiceInput, error) {
	var req dto.ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return service.ServiceInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Default().Struct(req); err != nil {
		return service.ServiceInput{}, err
	}
	return service.ServiceInput{
		Name:            req.Name,
		Description:     req.Description,
		BasePrice:       req.BasePrice,
		DurationMinutes: req.DurationMinutes,
		Icon:            req.Icon,
		IsActive:        req.IsActive == nil || *req.IsActive,
	}, nil
}

func promoInput(c *fiber.Ctx) (service.PromoInput, error) {
	var req dto.PromoRequest
	if err := c.BodyParser(&req); err != nil {
		return service.PromoInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validation.Default().Struct(req); err != nil {
		return service.PromoInput{}, err
	}
	return service.PromoInput{
		Code:           req.Code,
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxDiscount:    req.MaxDiscount,
		UsageLimit:     req.UsageLimit,
		IsActive:       req.IsActive == nil || *req.IsActive,
		StartsAt:       req.StartsAt,
		ExpiresAt:      req.ExpiresAt,
	}, nil
}
