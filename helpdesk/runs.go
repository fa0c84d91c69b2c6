package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	uuid "github.com/satori/go.uuid"
	"gopkg.in/gorp.v2"
)

// ProvisioningRun is one ledger row per dispatcher invocation.
type ProvisioningRun struct {
	ID       int64  `db:"id, primarykey, autoincrement" json:"-"`
	RunID    string `db:"run_id" json:"run_id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`
	TicketID string `db:"ticket_id" json:"ticket_id"`
	UPN      string `db:"upn" json:"upn"`
	Status   string `db:"status" json:"status"`
	Message  string `db:"message,size:1024" json:"message"`
	Metadata string `db:"metadata,size:10000" json:"-"`
	Created  int64  `db:"created" json:"created"`

	MetadataJSON json.RawMessage `db:"-" json:"metadata,omitempty"`
}

const maxRunsPerTicket = 50

func registerRunRoutes(router *gin.RouterGroup) {
	router.GET("/runs/:ticketId", listRunsHandler)
}

func newProvisioningRun(runID string, result DispatchResult, now time.Time) ProvisioningRun {
	run := ProvisioningRun{
		RunID:   runID,
		Status:  result.Response.Status,
		Message: result.Response.Message,
		Created: now.Unix(),
	}
	if result.Request != nil {
		run.TenantID = result.Request.TenantID
		run.TicketID = result.Request.TicketID
	}
	if result.Response.UPN != nil {
		run.UPN = *result.Response.UPN
	}
	if result.Response.Metadata != nil {
		if encoded, err := json.Marshal(result.Response.Metadata); err == nil {
			run.Metadata = string(encoded)
		}
	}
	return run
}

func insertProvisioningRun(exec gorp.SqlExecutor, run *ProvisioningRun) error {
	return exec.Insert(run)
}

func listProvisioningRuns(exec gorp.SqlExecutor, ticketID string) ([]ProvisioningRun, error) {
	runs := []ProvisioningRun{}
	_, err := exec.Select(&runs, "SELECT * FROM provisioning_runs WHERE ticket_id = ? ORDER BY created DESC LIMIT ?", ticketID, maxRunsPerTicket)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Metadata != "" && json.Valid([]byte(runs[i].Metadata)) {
			runs[i].MetadataJSON = json.RawMessage(runs[i].Metadata)
		}
	}
	return runs, nil
}

func generateRunID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// recordProvisioningRun is the dispatcher's completion hook in production.
func recordProvisioningRun(result DispatchResult) {
	runID, err := generateRunID()
	if err != nil {
		ErrorLog.Println("generateRunID err: ", err)
		return
	}
	run := newProvisioningRun(runID, result, time.Now())

	if dbmap != nil {
		if err := insertProvisioningRun(dbmap, &run); err != nil {
			ErrorLog.Println("insertProvisioningRun err: ", err, " ticket: ", run.TicketID)
		}
	}

	go archiveRunReport(run, result.Response)
	go sendProvisioningSummaryEmail(result)
}

func pruneProvisioningRuns(retention time.Duration) {
	cutoff := time.Now().Add(-retention).Unix()
	res, err := dbmap.Exec("DELETE FROM provisioning_runs WHERE created < ?", cutoff)
	if err != nil {
		ErrorLog.Println("pruneProvisioningRuns err: ", err)
		return
	}
	deleted, _ := res.RowsAffected()
	InfoLog.Println("pruned ", deleted, " provisioning runs older than ", retention)
}

func listRunsHandler(c *gin.Context) {
	ticketID := c.Param("ticketId")

	runs, err := listProvisioningRuns(dbmap, ticketID)
	if err != nil {
		ErrorLog.Println("listProvisioningRuns err: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not look up runs"})
		return
	}

	c.JSON(http.StatusOK, runs)
}
