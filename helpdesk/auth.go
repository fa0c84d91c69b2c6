package main

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	securityKeyHeader = "SecurityKey"
	adminKeyHeader    = "AdminKey"
)

// requireSecurityKey rejects requests whose SecurityKey header does not match. An empty
// expected key disables the check.
func requireSecurityKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(securityKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			ErrorLog.Println("rejected ", c.Request.Method, " ", c.Request.URL.Path, " from ", c.ClientIP(), ": bad SecurityKey")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
			return
		}

		c.Next()
	}
}

func isAdminRequest(c *gin.Context) error {
	provided := c.GetHeader(adminKeyHeader)
	if provided == "" || passwords.ADMIN_KEY == "" {
		return errors.New("Not authorized")
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(passwords.ADMIN_KEY)) != 1 {
		return errors.New("Not authorized")
	}
	return nil
}
