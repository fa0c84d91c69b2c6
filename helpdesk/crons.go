package main

import (
	"time"

	cron "gopkg.in/robfig/cron.v2"
)

const runRetention = 90 * 24 * time.Hour

func startCrons() {
	c := cron.New()

	c.AddFunc("@every 6h", func() {
		runCloudRadialTokenSync()
	})

	c.AddFunc("TZ=America/Los_Angeles 0 03 * * *", func() {
		pruneProvisioningRuns(runRetention)
	})

	InfoLog.Println("starting crons")

	c.Start()
}
