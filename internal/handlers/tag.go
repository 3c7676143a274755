package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/seedbed-backend/internal/requestdata"
	"github.com/yungbote/seedbed-backend/internal/services"
)

type TagHandler struct {
	tagService services.TagService
}

func NewTagHandler(tagService services.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

func (th *TagHandler) Create(c *gin.Context) {
	var req struct {
		Name  string  `json:"name"`
		Color *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tag, err := th.tagService.CreateTag(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (th *TagHandler) List(c *gin.Context) {
	tags, err := th.tagService.ListTags(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"tags": tags})
}

func (th *TagHandler) Rename(c *gin.Context) {
	id, ok := pathUUID(c, "id")
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
	tag, err := th.tagService.RenameTag(c.Request.Context(), requestdata.UserID(c.Request.Context()), id, req.Name)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, tag)
}

func (th *TagHandler) SetColor(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Color *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := th.tagService.SetColor(c.Request.Context(), id, req.Color); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": id})
}

func (th *TagHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := th.tagService.DeleteTag(c.Request.Context(), requestdata.UserID(c.Request.Context()), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}
