package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	CR_TOKEN_TEAMS            = "@TeamsGroups"
	CR_TOKEN_SECURITY         = "@SecurityGroups"
	CR_TOKEN_DISTRIBUTION     = "@DistributionGroups"
	CR_TOKEN_SHARED_MAILBOXES = "@SharedMailboxes"
	CR_TOKEN_LICENSES         = "@LicenseTypes"

	tokenSyncTimeout = 5 * time.Minute
)

// tokenOrder fixes the order tokens are pushed in
var tokenOrder = []string{CR_TOKEN_TEAMS, CR_TOKEN_SECURITY, CR_TOKEN_DISTRIBUTION, CR_TOKEN_SHARED_MAILBOXES, CR_TOKEN_LICENSES}

// buildTenantTokens renders the dropdown values the request forms offer for a tenant.
func buildTenantTokens(groups []GraphGroup, skus []GraphSku) map[string]string {
	byToken := map[string][]string{}
	for _, group := range groups {
		var token string
		switch classifyGroup(group) {
		case GROUP_CATEGORY_TEAMS:
			token = CR_TOKEN_TEAMS
		case GROUP_CATEGORY_SECURITY:
			token = CR_TOKEN_SECURITY
		case GROUP_CATEGORY_DISTRIBUTION:
			token = CR_TOKEN_DISTRIBUTION
		case GROUP_CATEGORY_SHARED_MAILBOXES:
			token = CR_TOKEN_SHARED_MAILBOXES
		default:
			continue
		}
		byToken[token] = append(byToken[token], group.DisplayName)
	}
	for _, sku := range skus {
		if sku.CapabilityStatus != "" && sku.CapabilityStatus != "Enabled" {
			continue
		}
		byToken[CR_TOKEN_LICENSES] = append(byToken[CR_TOKEN_LICENSES], licenseDisplayName(sku.SkuPartNumber))
	}

	tokens := map[string]string{}
	for _, token := range tokenOrder {
		values := dedupeNames(byToken[token])
		sort.Strings(values)
		tokens[token] = strings.Join(values, ",")
	}
	return tokens
}

func syncTenantTokens(ctx context.Context, tenant Tenant, g *GraphClient, cr *CloudRadialClient) error {
	groups, err := g.listGroups(ctx)
	if err != nil {
		return err
	}
	skus, err := g.subscribedSkus(ctx)
	if err != nil {
		return err
	}

	tokens := buildTenantTokens(groups, skus)
	for _, token := range tokenOrder {
		if err := cr.setCompanyToken(ctx, tenant.CloudRadialCompanyID, token, tokens[token]); err != nil {
			return err
		}
	}
	InfoLog.Printf("synced %d cloudradial tokens for tenant %s", len(tokens), tenant.Name)
	return nil
}

// runCloudRadialTokenSync pushes fresh tokens for every enabled tenant with a CloudRadial company.
func runCloudRadialTokenSync() {
	cr := newCloudRadialClientFromPasswords()
	if cr == nil {
		InfoLog.Println("cloudradial is not configured, skipping token sync")
		return
	}

	tenants, err := listEnabledTenants(dbmap)
	if err != nil {
		ErrorLog.Println("runCloudRadialTokenSync listEnabledTenants err: ", err)
		return
	}

	alert := TokenSyncAlertEmailBody{}
	for _, tenant := range tenants {
		if tenant.CloudRadialCompanyID == 0 {
			continue
		}

		err := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), tokenSyncTimeout)
			defer cancel()

			g, err := graphClientForTenant(tenant.TenantID)
			if err != nil {
				return err
			}
			return syncTenantTokens(ctx, tenant, g, cr)
		}()
		if err != nil {
			tokenSyncTotal.WithLabelValues("failed").Inc()
			ErrorLog.Println("token sync failed for tenant ", tenant.Name, ": ", err)
			alert.Failures = append(alert.Failures, struct {
				Tenant string
				Error  string
			}{fmt.Sprintf("%s (%s)", tenant.Name, tenant.TenantID), err.Error()})
			continue
		}
		tokenSyncTotal.WithLabelValues("synced").Inc()
	}

	sendTokenSyncAlert(alert)
}
