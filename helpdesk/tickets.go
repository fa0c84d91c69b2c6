package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type TicketNoteInput struct {
	Message  string `json:"message"`
	Internal *bool  `json:"internal"`
}

func registerTicketRoutes(router *gin.RouterGroup, cw *ConnectWiseClient) {
	router.POST("/tickets/:ticketId/notes", func(c *gin.Context) {
		addTicketNoteHandler(c, cw)
	})
}

func addTicketNoteHandler(c *gin.Context, cw *ConnectWiseClient) {
	if cw == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ConnectWise is not configured"})
		return
	}

	input := TicketNoteInput{}
	if err := c.ShouldBindWith(&input, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Input is wrong format"})
		return
	}
	if strings.TrimSpace(input.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ticketID := c.Param("ticketId")
	if _, err := parseTicketID(ticketID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	internal := true
	if input.Internal != nil {
		internal = *input.Internal
	}

	ticket, err := cw.getTicket(c.Request.Context(), ticketID)
	if err != nil {
		var cwErr *ConnectWiseError
		if errors.As(err, &cwErr) && cwErr.StatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		ErrorLog.Println("getTicket err: ", err, " ticket: ", ticketID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach ConnectWise"})
		return
	}

	note, err := cw.addTicketNote(c.Request.Context(), ticketID, input.Message, internal)
	if err != nil {
		ErrorLog.Println("addTicketNote err: ", err, " ticket: ", ticketID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "ConnectWise rejected the note"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"note": note, "ticket_summary": ticket.Summary})
}
