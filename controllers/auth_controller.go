package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Login(c *gin.Context) {
	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	token, user, err := ctl.Engine.Authenticate(&input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "username": user.Username, "role": user.Role},
	})
}
