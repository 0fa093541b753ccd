package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/shared"
)

type VoteHandler struct {
	voteSvc VoteServiceInterface
}

func NewVoteHandler(voteSvc VoteServiceInterface) *VoteHandler {
	return &VoteHandler{voteSvc: voteSvc}
}

// @Summary Submit a vote
// @Description Record a vote for a server and trigger the in-game reward notification
// @Tags votes
// @Accept json
// @Produce json
// @Param voteRequest body dto.SubmitVoteRequest true "Vote details"
// @Success 200 {object} shared.Response{data=dto.SubmitVoteResponse}
// @Router /api/v1/votes [post]
func (h *VoteHandler) SubmitVote(c *fiber.Ctx) error {
	var req dto.SubmitVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	clientIP, _ := c.Locals(shared.ClientIP).(string)
	if clientIP == "" {
		clientIP = c.IP()
	}
	userAgent := c.Get("User-Agent")

	resp, err := h.voteSvc.SubmitVote(c.UserContext(), &req, clientIP, userAgent)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Vote recorded", resp)
}

// @Summary Server vote history
// @Description Recent votes for one server
// @Tags votes
// @Produce json
// @Param id path string true "Server ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} shared.Response{data=dto.VoteHistoryResponse}
// @Router /api/v1/servers/{id}/votes [get]
func (h *VoteHandler) GetVoteHistory(c *fiber.Ctx) error {
	serverID := c.Params("id")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)

	resp, err := h.voteSvc.GetVoteHistory(serverID, page, limit)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Vote eligibility
// @Description When a player may vote for a server again
// @Tags votes
// @Produce json
// @Param id path string true "Server ID"
// @Param username query string true "Minecraft username"
// @Success 200 {object} shared.Response
// @Router /api/v1/servers/{id}/votes/next [get]
func (h *VoteHandler) GetNextVoteTime(c *fiber.Ctx) error {
	serverID := c.Params("id")
	username := c.Query("username")

	if !dto.IsValidMinecraftUsername(username) {
		return shared.ResponseBadRequest(c, "invalid minecraft username")
	}

	next, err := h.voteSvc.NextVoteTime(serverID, username, time.Now().UTC())
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, fiber.Map{
		"canVote":      next == nil,
		"nextVoteTime": next,
	})
}
