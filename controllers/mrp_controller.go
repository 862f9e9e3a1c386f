package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (ctl *Controller) GetMRP(c *gin.Context) {
	doc, err := ctl.Engine.Repo().LoadMRP()
	if err != nil {
		respondError(c, err)
		return
	}
	raw, err := ctl.Engine.Repo().LoadStock(models.ItemTypeRaw)
	if err != nil {
		respondError(c, err)
		return
	}
	totals := make(map[string]decimal.Decimal, len(doc.PurchaseOrders))
	for i := range doc.PurchaseOrders {
		oc := &doc.PurchaseOrders[i]
		totals[oc.ID] = workflow.PurchaseOrderTotal(oc, raw)
	}
	c.JSON(http.StatusOK, gin.H{"data": doc, "purchase_order_totals": totals})
}

func (ctl *Controller) CreateRecipe(c *gin.Context) {
	var input models.NewRecipe
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	recipe, err := ctl.Engine.CreateRecipe(&input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipe})
}

func (ctl *Controller) UpdateRecipe(c *gin.Context) {
	var input models.NewRecipe
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	recipe, err := ctl.Engine.UpdateRecipe(c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipe})
}

func (ctl *Controller) DeleteRecipe(c *gin.Context) {
	force := c.Query("force") == "1"
	if err := ctl.Engine.DeleteRecipe(c.Param("id"), force); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recipe deleted"})
}

func (ctl *Controller) CreateProductionOrder(c *gin.Context) {
	var input models.NewProductionOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.Engine.CreateProductionOrder(&input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) TransitionProductionOrder(c *gin.Context) {
	var input struct {
		Status models.ProductionOrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.Engine.TransitionProductionOrder(c.Param("id"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) ExecuteProductionOrder(c *gin.Context) {
	order, err := ctl.Engine.ExecuteProductionOrder(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) CreatePurchaseOrder(c *gin.Context) {
	var input models.NewPurchaseOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.Engine.CreatePurchaseOrder(&input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) AdjustPurchaseOrder(c *gin.Context) {
	var input struct {
		Adjustments []models.PurchaseOrderAdjustment `json:"adjustments" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.Engine.AdjustPurchaseOrder(c.Param("id"), input.Adjustments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) ReceivePurchaseOrder(c *gin.Context) {
	var input models.ReceiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.Engine.ReceivePurchaseOrder(c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (ctl *Controller) CancelPurchaseOrder(c *gin.Context) {
	order, err := ctl.Engine.CancelPurchaseOrder(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func orderKindParam(c *gin.Context) (models.OrderKind, bool) {
	kind := models.OrderKind(c.Param("kind"))
	if kind != models.OrderKindProduction && kind != models.OrderKindPurchase {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown order kind"})
		return "", false
	}
	return kind, true
}

func (ctl *Controller) ListArchivedOrders(c *gin.Context) {
	kind, ok := orderKindParam(c)
	if !ok {
		return
	}
	if kind == models.OrderKindProduction {
		doc, err := ctl.Engine.Repo().LoadOPArchive()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": doc.Orders})
		return
	}
	doc, err := ctl.Engine.Repo().LoadOCArchive()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc.Orders})
}

func (ctl *Controller) ArchiveOrder(c *gin.Context) {
	kind, ok := orderKindParam(c)
	if !ok {
		return
	}
	if err := ctl.Engine.ArchiveOrder(kind, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order archived"})
}

func (ctl *Controller) RestoreOrder(c *gin.Context) {
	kind, ok := orderKindParam(c)
	if !ok {
		return
	}
	if err := ctl.Engine.RestoreOrder(kind, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order restored"})
}

func (ctl *Controller) DeleteOrder(c *gin.Context) {
	kind, ok := orderKindParam(c)
	if !ok {
		return
	}
	if err := ctl.Engine.DeleteOrder(kind, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}
