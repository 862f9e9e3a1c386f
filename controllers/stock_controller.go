package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/kitchen_backend/middlewares"
	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/gin-gonic/gin"
)

func (ctl *Controller) GetStock(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	view, err := ctl.Engine.GetStock(t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (ctl *Controller) GetMovements(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	includeHidden := c.Query("include_hidden") == "1"
	movements, err := ctl.Engine.GetMovements(t, includeHidden)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": movements})
}

func (ctl *Controller) PostMovement(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	var input models.NewMovement
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	by := ""
	if claim := middlewares.CtxValue(c.Request.Context()); claim != nil {
		by = claim.ID
	}
	movement, err := ctl.Engine.PostMovement(t, &input, by)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": movement})
}

func (ctl *Controller) HideMovement(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	var input struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	if err := ctl.Engine.HideMovement(t, c.Param("id"), input.Hidden); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "movement updated"})
}

func (ctl *Controller) CreateItem(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	var input models.NewItem
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	item, err := ctl.Engine.CreateItem(t, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (ctl *Controller) UpdateItem(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	var input models.NewItem
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	item, err := ctl.Engine.UpdateItem(t, c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (ctl *Controller) DeleteItem(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	force := c.Query("force") == "1"
	if err := ctl.Engine.DeleteItem(t, c.Param("id"), force); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
}
