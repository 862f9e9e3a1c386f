package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/gin-gonic/gin"
)

func (ctl *Controller) ListSalesPoints(c *gin.Context) {
	doc, err := ctl.Engine.Repo().LoadSalesPoints()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc.Points})
}

func (ctl *Controller) CreateSalesPoint(c *gin.Context) {
	var input models.NewSalesPoint
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	point, err := ctl.Engine.CreateSalesPoint(&input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": point})
}

func (ctl *Controller) DeleteSalesPoint(c *gin.Context) {
	if err := ctl.Engine.DeleteSalesPoint(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sales point deleted"})
}

func (ctl *Controller) PointStock(c *gin.Context) {
	stock, err := ctl.Engine.PointStock(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stock})
}

func (ctl *Controller) ListSalesOrders(c *gin.Context) {
	doc, err := ctl.Engine.Repo().LoadSalesOrders()
	if err != nil {
		respondError(c, err)
		return
	}
	includeArchived := c.Query("archived") == "1"
	orders := make([]models.SalesOrder, 0, len(doc.Orders))
	for _, o := range doc.Orders {
		if o.Archived && !includeArchived {
			continue
		}
		orders = append(orders, o)
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (ctl *Controller) CreateSalesOrder(c *gin.Context) {
	var input models.NewSalesOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.Engine.CreateSalesOrder(&input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) DispatchSalesOrder(c *gin.Context) {
	order, err := ctl.Engine.DispatchSalesOrder(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) CancelSalesOrder(c *gin.Context) {
	order, err := ctl.Engine.CancelSalesOrder(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) ArchiveSalesOrder(c *gin.Context) {
	var input struct {
		Archived *bool `json:"archived" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	if err := ctl.Engine.ArchiveSalesOrder(c.Param("id"), *input.Archived); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sales order updated"})
}
