package controllers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
	"bitbucket.org/mmdatafocus/kitchen_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Controller is the thin REST surface over the workflow engine. It binds and
// validates payloads, delegates, and maps the error taxonomy onto status
// codes with stable string codes.
type Controller struct {
	Engine *workflow.Engine
	Logger *logrus.Logger
}

func New(engine *workflow.Engine, logger *logrus.Logger) *Controller {
	return &Controller{Engine: engine, Logger: logger}
}

func respondError(c *gin.Context, err error) {
	var insufficient *models.InsufficientStockError
	var transition *models.InvalidTransitionError
	var final *models.FinalStatusError
	var adjusted *models.AdjustedBelowReceivedError
	var referenced *models.ReferencedError
	var wipe *storage.WipeGuardError
	var corrupt *storage.CorruptDocumentError

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock", "shortages": insufficient.Shortages})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "detail": transition.Error()})
	case errors.As(err, &final):
		c.JSON(http.StatusConflict, gin.H{"error": "final_status", "detail": final.Error()})
	case errors.As(err, &adjusted):
		c.JSON(http.StatusConflict, gin.H{"error": "adjusted_below_received", "detail": adjusted.Error()})
	case errors.As(err, &referenced):
		c.JSON(http.StatusConflict, gin.H{"error": "referenced", "refs": referenced.Refs})
	case errors.As(err, &wipe):
		c.JSON(http.StatusConflict, gin.H{"error": "wipe_blocked", "list": wipe.List})
	case errors.As(err, &corrupt):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt_document"})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record_not_found"})
	case errors.Is(err, workflow.ErrorInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "fields": utils.ProcessValidationErrors(err)})
}

func itemTypeParam(c *gin.Context) (models.ItemType, bool) {
	t := models.ItemType(c.Param("type"))
	if !t.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stock type"})
		return "", false
	}
	return t, true
}
