package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/seedbed-backend/internal/requestdata"
	"github.com/yungbote/seedbed-backend/internal/services"
)

type OpsHandler struct {
	opsService  services.OpsService
	seedService services.SeedService
}

func NewOpsHandler(opsService services.OpsService, seedService services.SeedService) *OpsHandler {
	return &OpsHandler{opsService: opsService, seedService: seedService}
}

func (oh *OpsHandler) Queue(c *gin.Context) {
	entries, err := oh.opsService.ListQueue(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (oh *OpsHandler) Failed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := oh.opsService.ListFailed(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (oh *OpsHandler) Pressure(c *gin.Context) {
	points, err := oh.opsService.ListPressure(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"pressure_points": points})
}

func (oh *OpsHandler) Automations(c *gin.Context) {
	rows, err := oh.opsService.ListAutomations(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"automations": rows})
}

func (oh *OpsHandler) ToggleAutomation(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled required"})
		return
	}
	if err := oh.opsService.SetAutomationEnabled(c.Request.Context(), id, *req.Enabled); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id, "enabled": *req.Enabled})
}

func (oh *OpsHandler) BackfillSlugs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	updated, err := oh.seedService.BackfillSlugs(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": updated})
}

func (oh *OpsHandler) CleanupInvalidSeeds(c *gin.Context) {
	removed, err := oh.seedService.CleanupInvalidSeeds(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": removed})
}
