package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func registerAdminRoutes(router *gin.RouterGroup) {
	router.POST("/admin/startprocess/:processName", startAdminProcessHandler)
	router.POST("/admin/cacherefresh", refreshHandler)
}

func refreshHandler(c *gin.Context) {
	if err := isAdminRequest(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	cash.Flush()
	InfoLog.Println("cache flushed by admin request")

	c.JSON(http.StatusOK, gin.H{"msg": "Success"})
}

func startAdminProcessHandler(c *gin.Context) {
	if err := isAdminRequest(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	processName := c.Param("processName")
	switch processName {
	case "tokenSync":
		go runCloudRadialTokenSync()
	case "pruneRuns":
		go pruneProvisioningRuns(runRetention)
	default:
		ErrorLog.Println("unknown admin process: ", processName)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown process"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Process started"})
}
