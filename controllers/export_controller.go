package controllers

import (
	"fmt"
	"net/http"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ExportStock writes the stock listing of one type as an xlsx download.
func (ctl *Controller) ExportStock(c *gin.Context) {
	t, ok := itemTypeParam(c)
	if !ok {
		return
	}
	view, err := ctl.Engine.GetStock(t)
	if err != nil {
		respondError(c, err)
		return
	}

	f := excelize.NewFile()
	headers := []string{"Code", "Name", "Unit", "Stock", "MinStock", "Cost"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}
	for row, item := range view.Items {
		qty := view.Quantities[item.ID]
		values := []interface{}{item.Code, item.Name, item.Unit, qty.InexactFloat64(), item.MinStock.InexactFloat64(), item.Cost.InexactFloat64()}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="stock-%s.xlsx"`, t))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		ctl.Logger.WithError(err).Error("stock export failed")
	}
}

// ExportRecipeBOM writes one recipe's bill of materials as an xlsx download.
func (ctl *Controller) ExportRecipeBOM(c *gin.Context) {
	doc, err := ctl.Engine.Repo().LoadMRP()
	if err != nil {
		respondError(c, err)
		return
	}
	recipe := doc.FindRecipe(c.Param("id"))
	if recipe == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record_not_found"})
		return
	}
	raw, err := ctl.Engine.Repo().LoadStock(models.ItemTypeRaw)
	if err != nil {
		respondError(c, err)
		return
	}

	f := excelize.NewFile()
	f.SetCellValue(sheetName, "A1", "ItemCode")
	f.SetCellValue(sheetName, "B1", "ItemName")
	f.SetCellValue(sheetName, "C1", "Qty")
	f.SetCellValue(sheetName, "D1", "Unit")
	for row, line := range recipe.BOM {
		code, name, unit := line.ItemId, "", ""
		if item := raw.FindItem(line.ItemId); item != nil {
			code, name, unit = item.Code, item.Name, item.Unit
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row+2), code)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row+2), name)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row+2), line.Qty.InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row+2), unit)
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="bom-%s.xlsx"`, recipe.Name))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		ctl.Logger.WithError(err).Error("bom export failed")
	}
}

// ImportRecipeBOM replaces a recipe's BOM from an uploaded xlsx where each
// row is (item code, quantity). The update goes through the same guarded
// write path as any other recipe mutation.
func (ctl *Controller) ImportRecipeBOM(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	f, err := excelize.OpenReader(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a valid xlsx file"})
		return
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, err := ctl.Engine.Repo().LoadStock(models.ItemTypeRaw)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := ctl.Engine.Repo().LoadMRP()
	if err != nil {
		respondError(c, err)
		return
	}
	recipe := doc.FindRecipe(c.Param("id"))
	if recipe == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record_not_found"})
		return
	}

	bom := make([]models.NewBOMLine, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			// Header row, or too short to carry code+qty.
			continue
		}
		item := raw.FindItemByCode(row[0])
		if item == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %d: unknown item code %q", i+1, row[0])})
			return
		}
		qty, err := decimal.NewFromString(row[1])
		if err != nil || !qty.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %d: bad quantity %q", i+1, row[1])})
			return
		}
		bom = append(bom, models.NewBOMLine{ItemId: item.ID, Qty: qty, Pos: len(bom) + 1})
	}
	if len(bom) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no bom rows found"})
		return
	}

	input := models.NewRecipe{
		Name:      recipe.Name,
		YieldQty:  recipe.YieldQty,
		YieldUnit: recipe.YieldUnit,
		BOM:       bom,
		Notes:     recipe.Notes,
		Method:    recipe.Method,
	}
	updated, err := ctl.Engine.UpdateRecipe(recipe.ID, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}
