package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxDispatchBodyBytes = 1 << 20

type provisioningHandler struct {
	dispatcher *Dispatcher
	// onComplete runs after the response is computed, before it is written
	onComplete func(DispatchResult)
}

func registerProvisioningRoutes(router *gin.RouterGroup, h *provisioningHandler) {
	router.POST("/dispatcher", h.dispatch)
}

func (h *provisioningHandler) dispatch(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDispatchBodyBytes))
	if err != nil {
		ErrorLog.Println("dispatcher read body err: ", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), body)

	if h.onComplete != nil {
		h.onComplete(result)
	}

	c.JSON(result.HTTPStatus, result.Response)
}
