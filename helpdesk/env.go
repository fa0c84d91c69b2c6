package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/logging"
	envparse "github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
)

type Env struct {
	Environment  string        `env:"ENV" envDefault:"dev"`
	Port         string        `env:"PORT" envDefault:"8080"`
	Crons        string        `env:"CRONS"`
	StepTimeout  time.Duration `env:"STEP_TIMEOUT" envDefault:"30s"`
	GCPProject   string        `env:"GCP_PROJECT" envDefault:"helpdesk-automation"`
	ConfigDir    string        `env:"HELPDESK_CONFIG_DIR"`
	TemplatesDir string        `env:"HELPDESK_TEMPLATES_DIR"`

	Production bool
}

var (
	env      = &Env{}
	InfoLog  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLog = log.New(os.Stdout, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	GinLog   = log.New(os.Stdout, "", log.Ltime)
)

func initEnv() {
	parsed := Env{}
	if err := envparse.Parse(&parsed); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}
	parsed.Production = parsed.Environment == "prod"

	env = &parsed
}

func initLogger() {
	if !env.Production {
		return
	}

	ctx := context.Background()

	client, err := logging.NewClient(ctx, env.GCPProject)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	logName := "helpdesk-log"

	InfoLog = client.Logger(logName).StandardLogger(logging.Info)
	InfoLog.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ErrorLog = client.Logger(logName).StandardLogger(logging.Error)
	ErrorLog.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	GinLog = client.Logger(logName).StandardLogger(logging.Info)
	GinLog.SetFlags(log.Ltime)
}

func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		clientIP := c.GetHeader("X-Real-IP")
		if clientIP == "" {
			clientIP = c.ClientIP()
		}

		if raw != "" {
			path = path + "?" + raw
		}

		GinLog.Printf("[GIN] %v | %3d | %13v | %15s | %-7s %s\n",
			end.Format("2006/01/02 - 15:04:05"),
			c.Writer.Status(),
			latency,
			clientIP,
			c.Request.Method,
			path,
		)
	}
}
