package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	Dispatcher  *Dispatcher
	Notes       *ConnectWiseClient
	SecurityKey string
	OnComplete  func(DispatchResult)
}

func main() {
	initEnv()
	initLogger()
	loadPasswords()
	initDB()
	initEmailTemplates()
	initCache()
	initMetrics()

	if env.Production {
		gin.SetMode(gin.ReleaseMode)
		gin.DisableConsoleColor()
	}

	router := gin.New()

	if env.Production {
		router.Use(GinLogger())
	} else {
		router.Use(gin.Logger())
	}

	router.Use(gin.Recovery())

	notes := newConnectWiseClientFromPasswords()
	registerRoutes(router, routeDeps{
		Dispatcher:  newProductionDispatcher(notes),
		Notes:       notes,
		SecurityKey: passwords.SECURITY_KEY,
		OnComplete:  recordProvisioningRun,
	})

	runScripts()

	router.Run(":" + env.Port)
}

func newProductionDispatcher(notes *ConnectWiseClient) *Dispatcher {
	directory := graphDirectory{clientFor: graphClientForTenant}
	d := &Dispatcher{
		Tenants:     tenantRegistry{exec: dbmap},
		Mirrors:     directory,
		Users:       directory,
		Groups:      directory,
		Licenses:    directory,
		StepTimeout: env.StepTimeout,
	}
	if notes != nil {
		d.Notes = notes
	} else {
		ErrorLog.Println("connectwise is not configured, ticket notes will not be published")
	}
	return d
}

func registerRoutes(router *gin.Engine, deps routeDeps) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metricsHandler()))

	api := router.Group("/api", requireSecurityKey(deps.SecurityKey))
	registerProvisioningRoutes(api, &provisioningHandler{dispatcher: deps.Dispatcher, onComplete: deps.OnComplete})
	registerRunRoutes(api)
	registerTicketRoutes(api, deps.Notes)
	registerTenantRoutes(api)
	registerAdminRoutes(api)
}
