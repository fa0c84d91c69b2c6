package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gopkg.in/gorp.v2"
)

// Tenant links an Azure AD tenant to its CloudRadial company.
type Tenant struct {
	ID                   int64  `db:"id, primarykey, autoincrement" json:"-"`
	TenantID             string `db:"tenant_id" json:"tenant_id"`
	Name                 string `db:"name" json:"name"`
	CloudRadialCompanyID int64  `db:"cloudradial_company_id" json:"cloudradial_company_id"`
	Enabled              *bool  `db:"enabled" json:"enabled"`
	Created              int64  `db:"created" json:"-"`
}

type CreateTenantRequest struct {
	TenantID             string `json:"tenant_id"`
	Name                 string `json:"name"`
	CloudRadialCompanyID int64  `json:"cloudradial_company_id"`
}

func registerTenantRoutes(router *gin.RouterGroup) {
	router.POST("/tenants", addTenantHandler)
}

func (t Tenant) isEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

func lookupTenant(exec gorp.SqlExecutor, tenantID string) (Tenant, error) {
	tenant := Tenant{}
	err := exec.SelectOne(&tenant, "SELECT * FROM tenants WHERE tenant_id = ?", tenantID)
	return tenant, err
}

var (
	errTenantNotRegistered = errors.New("tenant is not registered")
	errTenantDisabled      = errors.New("tenant is disabled")
)

// tenantRegistry checks dispatch requests against the tenants table.
type tenantRegistry struct {
	exec gorp.SqlExecutor
}

func (r tenantRegistry) CheckTenant(tenantID string) error {
	tenant, err := lookupTenant(r.exec, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", errTenantNotRegistered, tenantID)
	}
	if err != nil {
		return err
	}
	if !tenant.isEnabled() {
		return fmt.Errorf("%w: %s", errTenantDisabled, tenantID)
	}
	return nil
}

func listEnabledTenants(exec gorp.SqlExecutor) ([]Tenant, error) {
	tenants := []Tenant{}
	_, err := exec.Select(&tenants, "SELECT * FROM tenants WHERE enabled IS NULL OR enabled = 1")
	return tenants, err
}

func addTenantHandler(c *gin.Context) {
	input := CreateTenantRequest{}
	if err := c.ShouldBindWith(&input, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Input is wrong format"})
		return
	}

	input.TenantID = strings.TrimSpace(input.TenantID)
	input.Name = strings.TrimSpace(input.Name)
	if input.TenantID == "" || input.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id and name are required"})
		return
	}

	if _, err := lookupTenant(dbmap, input.TenantID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "That tenant is already registered"})
		return
	}

	enabled := true
	newTenant := Tenant{
		TenantID:             input.TenantID,
		Name:                 input.Name,
		CloudRadialCompanyID: input.CloudRadialCompanyID,
		Enabled:              &enabled,
		Created:              time.Now().Unix(),
	}
	if err := dbmap.Insert(&newTenant); err != nil {
		ErrorLog.Println("insert tenant err: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save tenant"})
		return
	}

	InfoLog.Println("registered tenant ", newTenant.Name, " (", newTenant.TenantID, ")")
	c.JSON(http.StatusCreated, newTenant)
}
