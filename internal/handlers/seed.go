package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/seedbed-backend/internal/requestdata"
	"github.com/yungbote/seedbed-backend/internal/services"
)

type SeedHandler struct {
	seedService services.SeedService
}

func NewSeedHandler(seedService services.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

func (sh *SeedHandler) Create(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := sh.seedService.CreateSeed(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (sh *SeedHandler) List(c *gin.Context) {
	views, err := sh.seedService.ListSeeds(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"seeds": views})
}

func (sh *SeedHandler) Get(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := sh.seedService.GetSeed(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (sh *SeedHandler) Transactions(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	txs, err := sh.seedService.ListTransactions(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"transactions": txs})
}

func (sh *SeedHandler) Delete(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := sh.seedService.DeleteSeed(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": seedID})
}

func (sh *SeedHandler) EditContent(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := sh.seedService.EditContent(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID, req.Content)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (sh *SeedHandler) AddTag(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := sh.seedService.AddTag(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID, req.Name)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (sh *SeedHandler) RemoveTag(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	tagID, ok := pathUUID(c, "tagId")
	if !ok {
		return
	}
	view, err := sh.seedService.RemoveTag(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID, tagID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (sh *SeedHandler) SetCategory(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CategoryID uuid.UUID `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := sh.seedService.SetCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID, req.CategoryID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (sh *SeedHandler) RemoveCategory(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := sh.seedService.RemoveCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func (sh *SeedHandler) AddSprout(c *gin.Context) {
	seedID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := sh.seedService.AddSprout(c.Request.Context(), requestdata.UserID(c.Request.Context()), seedID, req.Kind, req.Text)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
