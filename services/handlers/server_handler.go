package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/shared"
)

type ServerHandler struct {
	serverSvc ServerServiceInterface
}

func NewServerHandler(serverSvc ServerServiceInterface) *ServerHandler {
	return &ServerHandler{serverSvc: serverSvc}
}

// @Summary List servers
// @Description Public approved server listings with filtering and pagination
// @Tags servers
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param category query string false "Category filter"
// @Param search query string false "Search term"
// @Param sort query string false "Sort order: votes, newest, players"
// @Success 200 {object} shared.Response{data=dto.ServerListResponse}
// @Router /api/v1/servers [get]
func (h *ServerHandler) ListServers(c *fiber.Ctx) error {
	var req dto.ListServersRequest
	if err := c.QueryParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "invalid query parameters")
	}

	resp, err := h.serverSvc.ListServers(req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Get server
// @Description One public server listing
// @Tags servers
// @Produce json
// @Param id path string true "Server ID"
// @Success 200 {object} shared.Response{data=model.Server}
// @Router /api/v1/servers/{id} [get]
func (h *ServerHandler) GetServer(c *fiber.Ctx) error {
	server, err := h.serverSvc.GetServer(c.Params("id"), false)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, server)
}

// @Summary Register server
// @Description Submit a new server listing for review
// @Tags servers
// @Accept json
// @Produce json
// @Param registerRequest body dto.RegisterServerRequest true "Server details"
// @Success 201 {object} shared.Response{data=model.Server}
// @Router /api/v1/servers [post]
func (h *ServerHandler) RegisterServer(c *fiber.Ctx) error {
	var req dto.RegisterServerRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	clientIP, _ := c.Locals(shared.ClientIP).(string)
	server, err := h.serverSvc.RegisterServer(&req, shared.HashIdentifier(clientIP))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Server submitted for review", server)
}

// @Summary Ping server
// @Description Probe a server's live status and player counts
// @Tags servers
// @Produce json
// @Param id path string true "Server ID"
// @Success 200 {object} shared.Response{data=dto.PingServerResponse}
// @Router /api/v1/servers/{id}/ping [get]
func (h *ServerHandler) PingServer(c *fiber.Ctx) error {
	resp, err := h.serverSvc.PingServer(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
