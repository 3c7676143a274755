package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/seedbed-backend/internal/requestdata"
	"github.com/yungbote/seedbed-backend/internal/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (ch *CategoryHandler) Create(c *gin.Context) {
	var req struct {
		Name     string     `json:"name"`
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cat, err := ch.categoryService.CreateCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.ParentID, req.Name)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (ch *CategoryHandler) List(c *gin.Context) {
	cats, err := ch.categoryService.ListCategories(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"categories": cats})
}

func (ch *CategoryHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	cat, err := ch.categoryService.GetCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, cat)
}

func (ch *CategoryHandler) Rename(c *gin.Context) {
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
	cat, err := ch.categoryService.RenameCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), id, req.Name)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, cat)
}

func (ch *CategoryHandler) Move(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cat, err := ch.categoryService.MoveCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), id, req.ParentID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, cat)
}

func (ch *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := ch.categoryService.DeleteCategory(c.Request.Context(), requestdata.UserID(c.Request.Context()), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}
