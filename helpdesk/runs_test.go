package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func newMockDbMap(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	dbmap = newDbMap(db)
	return mock
}

func sampleDispatchResult() DispatchResult {
	upn := "jane.doe@contoso.com"
	req := &ProvisioningRequest{TenantID: "tenant-1", TicketID: "100245"}
	initializeMetadata(req, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	recordStepResult(req, StepGroupAssignment, STATUS_PARTIAL, "group assignment errors: Finance RW: not found")
	return DispatchResult{
		Request:    req,
		HTTPStatus: http.StatusOK,
		Response: ProvisioningResponse{
			Status:   RESULT_PARTIAL,
			Message:  "The user was provisioned with errors; see metadata for the failed steps.",
			TicketID: "100245",
			UPN:      &upn,
			Metadata: req.Metadata,
			Errors:   req.Metadata.Errors,
		},
	}
}

func TestNewProvisioningRun(t *testing.T) {
	now := time.Unix(1714554000, 0)
	run := newProvisioningRun("run-1", sampleDispatchResult(), now)

	if run.RunID != "run-1" || run.TenantID != "tenant-1" || run.TicketID != "100245" || run.UPN != "jane.doe@contoso.com" {
		t.Fatalf("run %#v", run)
	}
	if run.Status != RESULT_PARTIAL || run.Created != now.Unix() {
		t.Fatalf("run %#v", run)
	}
	meta := ProvisioningMetadata{}
	if err := json.Unmarshal([]byte(run.Metadata), &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Status[StepGroupAssignment] != STATUS_PARTIAL || len(meta.Errors) != 1 {
		t.Fatalf("metadata %s", run.Metadata)
	}
}

func TestInsertProvisioningRun(t *testing.T) {
	mock := newMockDbMap(t)
	mock.ExpectExec("insert into `provisioning_runs`").WillReturnResult(sqlmock.NewResult(7, 1))

	run := newProvisioningRun("run-1", sampleDispatchResult(), time.Now())
	if err := insertProvisioningRun(dbmap, &run); err != nil {
		t.Fatal(err)
	}
	if run.ID != 7 {
		t.Errorf("id %d", run.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListRunsHandler(t *testing.T) {
	mock := newMockDbMap(t)
	rows := sqlmock.NewRows([]string{"id", "run_id", "tenant_id", "ticket_id", "upn", "status", "message", "metadata", "created"}).
		AddRow(2, "run-2", "tenant-1", "100245", "jane.doe@contoso.com", "success", "Provisioned", `{"status":{"userCreation":"successful"}}`, 1714554100).
		AddRow(1, "run-1", "tenant-1", "100245", "", "failed", "Validation failed.", "", 1714554000)
	mock.ExpectQuery(`SELECT \* FROM provisioning_runs WHERE ticket_id = \?`).
		WithArgs("100245", sqlmock.AnyArg()).
		WillReturnRows(rows)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRunRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/100245", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("code %d: %s", w.Code, w.Body.String())
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0]["run_id"] != "run-2" {
		t.Fatalf("body %s", w.Body.String())
	}
	if _, ok := got[0]["metadata"].(map[string]interface{}); !ok {
		t.Errorf("metadata should be embedded as json: %s", w.Body.String())
	}
	if _, ok := got[1]["metadata"]; ok {
		t.Errorf("empty metadata should be omitted: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAddTenantHandler(t *testing.T) {
	mock := newMockDbMap(t)
	mock.ExpectQuery(`SELECT \* FROM tenants WHERE tenant_id = \?`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "cloudradial_company_id", "enabled", "created"}))
	mock.ExpectExec("insert into `tenants`").WillReturnResult(sqlmock.NewResult(3, 1))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerTenantRoutes(router.Group("/api"))

	body := bytes.NewBufferString(`{"tenant_id": " tenant-1 ", "name": "Contoso", "cloudradial_company_id": 42}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tenants", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("code %d: %s", w.Code, w.Body.String())
	}
	tenant := Tenant{}
	if err := json.Unmarshal(w.Body.Bytes(), &tenant); err != nil {
		t.Fatal(err)
	}
	if tenant.TenantID != "tenant-1" || tenant.CloudRadialCompanyID != 42 || !tenant.isEnabled() {
		t.Fatalf("tenant %#v", tenant)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAddTenantHandlerRejectsDuplicates(t *testing.T) {
	mock := newMockDbMap(t)
	mock.ExpectQuery(`SELECT \* FROM tenants WHERE tenant_id = \?`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "cloudradial_company_id", "enabled", "created"}).
			AddRow(1, "tenant-1", "Contoso", 42, true, 1714554000))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerTenantRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tenants", bytes.NewBufferString(`{"tenant_id": "tenant-1", "name": "Contoso"}`)))

	if w.Code != http.StatusConflict {
		t.Fatalf("code %d", w.Code)
	}
}

func TestGenerateRunID(t *testing.T) {
	first, err := generateRunID()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := generateRunID()
	if len(first) != 36 || first == second {
		t.Fatalf("ids %q %q", first, second)
	}
}
