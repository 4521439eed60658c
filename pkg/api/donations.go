package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"foodshare/pkg/models"
)

type claimRequest struct {
	DeliveryNeeded bool `json:"delivery_needed"`
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func limitQuery(c *gin.Context) int {
	n, _ := strconv.Atoi(c.Query("limit"))
	return n
}

func (h *handler) createDonation(c *gin.Context) {
	actor, _ := actorFrom(c)
	var payload models.DonationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.svc.Donation().Create(c.Request.Context(), actor, payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *handler) updateDonation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	var payload models.DonationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.svc.Donation().Update(c.Request.Context(), actor, id, payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) getDonation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	d, err := h.svc.Donation().Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) deleteDonation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	if err := h.svc.Donation().Delete(c.Request.Context(), actor, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) claim(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	d, err := h.svc.Donation().Claim(c.Request.Context(), actor, id, req.DeliveryNeeded)
	h.respondDonation(c, d, err)
}

func (h *handler) accept(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	d, err := h.svc.Donation().Accept(c.Request.Context(), actor, id)
	h.respondDonation(c, d, err)
}

func (h *handler) deliver(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	d, err := h.svc.Donation().Deliver(c.Request.Context(), actor, id)
	h.respondDonation(c, d, err)
}

func (h *handler) cancel(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	d, err := h.svc.Donation().Cancel(c.Request.Context(), actor, id)
	h.respondDonation(c, d, err)
}

func (h *handler) respondDonation(c *gin.Context, d *models.Donation, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handler) chatParties(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)
	p, err := h.svc.Donation().ChatParties(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) listAvailable(c *gin.Context) {
	list, err := h.svc.Donation().ListAvailable(c.Request.Context())
	h.respondList(c, list, err)
}

func (h *handler) listRecent(c *gin.Context) {
	list, err := h.svc.Donation().ListRecent(c.Request.Context(), limitQuery(c))
	h.respondList(c, list, err)
}

func (h *handler) listByDonor(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	list, err := h.svc.Donation().ListByDonor(c.Request.Context(), id)
	h.respondList(c, list, err)
}

func (h *handler) listByReceiver(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	list, err := h.svc.Donation().ListByReceiver(c.Request.Context(), id)
	h.respondList(c, list, err)
}

func (h *handler) listVolunteerTasks(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	list, err := h.svc.Donation().ListVolunteerTasks(c.Request.Context(), id)
	h.respondList(c, list, err)
}

func (h *handler) respondList(c *gin.Context, list []*models.Donation, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) leaderboard(c *gin.Context) {
	board, err := h.svc.Leaderboard().Board(c.Request.Context(), limitQuery(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
