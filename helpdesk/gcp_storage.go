package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// NOTE: this uses a service account, you must set a environment variable
// see https://cloud.google.com/storage/docs/reference/libraries

func bytesToGCP(ctx context.Context, bucketName, objectName, contentType string, data []byte) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

type runReport struct {
	RunID    string               `json:"run_id"`
	TenantID string               `json:"tenant_id"`
	TicketID string               `json:"ticket_id"`
	Created  int64                `json:"created"`
	Response ProvisioningResponse `json:"response"`
}

func runReportObjectName(run ProvisioningRun) string {
	created := time.Unix(run.Created, 0).UTC()
	tenant := run.TenantID
	if tenant == "" {
		tenant = "unknown-tenant"
	}
	return fmt.Sprintf("runs/%s/%s/%s.json", tenant, created.Format("2006/01/02"), run.RunID)
}

// archiveRunReport keeps the full response of a run in the report bucket, when one is configured.
func archiveRunReport(run ProvisioningRun, resp ProvisioningResponse) {
	if passwords.REPORT_BUCKET == "" {
		return
	}

	data, err := json.Marshal(runReport{
		RunID:    run.RunID,
		TenantID: run.TenantID,
		TicketID: run.TicketID,
		Created:  run.Created,
		Response: resp,
	})
	if err != nil {
		ErrorLog.Println("archiveRunReport marshal err: ", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	objectName := runReportObjectName(run)
	if err := bytesToGCP(ctx, passwords.REPORT_BUCKET, objectName, "application/json", data); err != nil {
		ErrorLog.Println("archiveRunReport upload err: ", err, " object: ", objectName)
		return
	}
	InfoLog.Println("archived run report ", objectName)
}
