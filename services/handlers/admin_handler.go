package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/shared"
)

type AdminHandler struct {
	authSvc   AuthServiceInterface
	serverSvc ServerServiceInterface
	statsSvc  StatsServiceInterface
	mediaSvc  MediaServiceInterface
}

func NewAdminHandler(authSvc AuthServiceInterface, serverSvc ServerServiceInterface, statsSvc StatsServiceInterface, mediaSvc MediaServiceInterface) *AdminHandler {
	return &AdminHandler{
		authSvc:   authSvc,
		serverSvc: serverSvc,
		statsSvc:  statsSvc,
		mediaSvc:  mediaSvc,
	}
}

// @Summary First-time setup
// @Description Create the first admin account. Refused once any admin exists.
// @Tags admin
// @Accept json
// @Produce json
// @Param setupRequest body dto.AdminSetupRequest true "Admin account details"
// @Success 201 {object} shared.Response{data=dto.AdminInfo}
// @Router /api/v1/admin/setup [post]
func (h *AdminHandler) Setup(c *fiber.Ctx) error {
	var req dto.AdminSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.Setup(&req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Admin account created", resp)
}

// @Summary Admin login
// @Description Authenticate an admin and return a bearer token
// @Tags admin
// @Accept json
// @Produce json
// @Param loginRequest body dto.AdminLoginRequest true "Credentials"
// @Success 200 {object} shared.Response{data=dto.AdminLoginResponse}
// @Router /api/v1/admin/login [post]
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.Login(&req, clientIP(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}

// @Summary Moderation server list
// @Description All listings including pending ones
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param filter query string false "all, pending, approved, featured"
// @Param search query string false "Search term"
// @Success 200 {object} shared.Response{data=dto.ServerListResponse}
// @Router /api/v1/admin/servers [get]
func (h *AdminHandler) ListServers(c *fiber.Ctx) error {
	var req dto.AdminListServersRequest
	if err := c.QueryParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "invalid query parameters")
	}

	resp, err := h.serverSvc.AdminListServers(req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Moderate server
// @Description Approve, feature or disable voting on a listing
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Server ID"
// @Param updateRequest body dto.AdminUpdateServerRequest true "Moderation flags"
// @Success 200 {object} shared.Response{data=model.Server}
// @Router /api/v1/admin/servers/{id} [patch]
func (h *AdminHandler) UpdateServer(c *fiber.Ctx) error {
	var req dto.AdminUpdateServerRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	serverID := c.Params("id")
	server, err := h.serverSvc.AdminUpdateServer(serverID, &req)
	if err != nil {
		return err
	}

	adminID, _ := c.Locals(shared.AdminID).(string)
	h.authSvc.Audit(adminID, "update_server", serverID, clientIP(c), "")
	h.statsSvc.InvalidateSiteStats(c.UserContext())

	return shared.ResponseOK(c, server)
}

// @Summary Update server details
// @Description Edit a listing's fields including the votifier target
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Server ID"
// @Param updateRequest body dto.UpdateServerRequest true "Server fields"
// @Success 200 {object} shared.Response{data=model.Server}
// @Router /api/v1/admin/servers/{id} [put]
func (h *AdminHandler) EditServer(c *fiber.Ctx) error {
	var req dto.UpdateServerRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	serverID := c.Params("id")
	server, err := h.serverSvc.UpdateServer(serverID, &req)
	if err != nil {
		return err
	}

	adminID, _ := c.Locals(shared.AdminID).(string)
	h.authSvc.Audit(adminID, "edit_server", serverID, clientIP(c), "")

	return shared.ResponseOK(c, server)
}

// @Summary Delete server
// @Description Remove a listing and its vote log
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path string true "Server ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/admin/servers/{id} [delete]
func (h *AdminHandler) DeleteServer(c *fiber.Ctx) error {
	serverID := c.Params("id")
	if err := h.serverSvc.DeleteServer(serverID); err != nil {
		return err
	}

	adminID, _ := c.Locals(shared.AdminID).(string)
	h.authSvc.Audit(adminID, "delete_server", serverID, clientIP(c), "")
	h.statsSvc.InvalidateSiteStats(c.UserContext())

	return shared.ResponseOK(c, nil)
}

// @Summary Upload server banner
// @Description Attach a banner image to a listing
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param id path string true "Server ID"
// @Param banner formData file true "Banner image"
// @Success 200 {object} shared.Response{data=dto.MediaUploadResponse}
// @Router /api/v1/admin/servers/{id}/banner [post]
func (h *AdminHandler) UploadBanner(c *fiber.Ctx) error {
	file, err := c.FormFile("banner")
	if err != nil {
		return shared.ResponseBadRequest(c, "banner file is required")
	}

	serverID := c.Params("id")
	resp, err := h.mediaSvc.UploadServerBanner(serverID, file)
	if err != nil {
		return err
	}

	adminID, _ := c.Locals(shared.AdminID).(string)
	h.authSvc.Audit(adminID, "upload_banner", serverID, clientIP(c), "")

	return shared.ResponseOK(c, resp)
}

// @Summary Delete server banner
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path string true "Server ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/admin/servers/{id}/banner [delete]
func (h *AdminHandler) DeleteBanner(c *fiber.Ctx) error {
	serverID := c.Params("id")
	if err := h.mediaSvc.DeleteServerBanner(serverID); err != nil {
		return err
	}

	adminID, _ := c.Locals(shared.AdminID).(string)
	h.authSvc.Audit(adminID, "delete_banner", serverID, clientIP(c), "")

	return shared.ResponseOK(c, nil)
}

// @Summary Dashboard stats
// @Description Counters for the moderation panel
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.AdminDashboardStats}
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	resp, err := h.statsSvc.GetDashboardStats()
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Audit log
// @Description Moderation audit trail, newest first
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} shared.Response{data=dto.AdminAuditLogResponse}
// @Router /api/v1/admin/audit [get]
func (h *AdminHandler) AuditLogs(c *fiber.Ctx) error {
	resp, err := h.authSvc.ListAuditLogs(c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

func clientIP(c *fiber.Ctx) string {
	if ip, _ := c.Locals(shared.ClientIP).(string); ip != "" {
		return ip
	}
	return c.IP()
}
