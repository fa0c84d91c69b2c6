package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
)

const (
	graphUserSelect  = "id,displayName,mail,userPrincipalName,usageLocation"
	graphGroupSelect = "id,displayName,mail,groupTypes,mailEnabled,securityEnabled"

	DEFAULT_USAGE_LOCATION = "US"
)

// friendly names the request forms use for common SKUs
var licenseFriendlyNames = map[string]string{
	"microsoft 365 business basic":    "O365_BUSINESS_ESSENTIALS",
	"microsoft 365 business standard": "O365_BUSINESS_PREMIUM",
	"microsoft 365 business premium":  "SPB",
	"microsoft 365 e3":                "SPE_E3",
	"microsoft 365 e5":                "SPE_E5",
	"office 365 e1":                   "STANDARDPACK",
	"office 365 e3":                   "ENTERPRISEPACK",
	"office 365 e5":                   "ENTERPRISEPREMIUM",
	"exchange online (plan 1)":        "EXCHANGESTANDARD",
	"exchange online (plan 2)":        "EXCHANGEENTERPRISE",
	"microsoft teams essentials":      "TEAMS_ESSENTIALS_AAD",
	"visio plan 2":                    "VISIOCLIENT",
	"project plan 3":                  "PROJECTPROFESSIONAL",
	"power bi pro":                    "POWER_BI_PRO",
}

func (g *GraphClient) getUser(ctx context.Context, userRef string) (*GraphUser, error) {
	user := &GraphUser{}
	path := "/users/" + url.PathEscape(userRef) + "?$select=" + graphUserSelect
	if err := g.do(ctx, "getUser", http.MethodGet, path, nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (g *GraphClient) createUser(ctx context.Context, newUser GraphNewUserRequest) (*GraphUser, error) {
	created := &GraphUser{}
	if err := g.do(ctx, "createUser", http.MethodPost, "/users", newUser, created); err != nil {
		return nil, err
	}
	return created, nil
}

// listGroupPages follows @odata.nextLink until the listing is exhausted.
func (g *GraphClient) listGroupPages(ctx context.Context, op, path string) ([]GraphGroup, error) {
	groups := []GraphGroup{}
	for path != "" {
		page := GraphGroupsPage{}
		if err := g.do(ctx, op, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		groups = append(groups, page.Value...)
		path = page.OdataNextLink
	}
	return groups, nil
}

func (g *GraphClient) listMemberGroups(ctx context.Context, userID string) ([]GraphGroup, error) {
	path := "/users/" + url.PathEscape(userID) + "/memberOf/microsoft.graph.group?$select=" + graphGroupSelect + "&$top=999"
	return g.listGroupPages(ctx, "listMemberGroups", path)
}

func (g *GraphClient) listGroups(ctx context.Context) ([]GraphGroup, error) {
	return g.listGroupPages(ctx, "listGroups", "/groups?$select="+graphGroupSelect+"&$top=999")
}

func (g *GraphClient) findGroupByName(ctx context.Context, name string) (*GraphGroup, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("displayName eq '%s'", strings.ReplaceAll(name, "'", "''")))
	q.Set("$select", graphGroupSelect)

	page := GraphGroupsPage{}
	if err := g.do(ctx, "findGroupByName", http.MethodGet, "/groups?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	switch len(page.Value) {
	case 0:
		return nil, &GraphError{Op: "findGroupByName", StatusCode: http.StatusNotFound, Code: "Request_ResourceNotFound", Message: fmt.Sprintf("no group named %q", name)}
	case 1:
		return &page.Value[0], nil
	default:
		return nil, &GraphError{Op: "findGroupByName", StatusCode: http.StatusConflict, Code: "AmbiguousGroupName", Message: fmt.Sprintf("%d groups are named %q", len(page.Value), name)}
	}
}

// addGroupMember treats an existing membership as success.
func (g *GraphClient) addGroupMember(ctx context.Context, groupID, userID string) error {
	ref := GraphMemberRef{OdataID: graphBaseURL + "/directoryObjects/" + userID}
	err := g.do(ctx, "addGroupMember", http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/members/$ref", ref, nil)
	if graphErr, ok := err.(*GraphError); ok && graphErr.StatusCode == http.StatusBadRequest && strings.Contains(graphErr.Message, "already exist") {
		return nil
	}
	return err
}

func (g *GraphClient) subscribedSkus(ctx context.Context) ([]GraphSku, error) {
	cacheKey := g.TenantID + CACHENAME_SUBSCRIBED_SKUS
	if cached, found := cash.Get(cacheKey); found {
		if skus, ok := cached.([]GraphSku); ok {
			return skus, nil
		}
	}

	skus := GraphSkusResponse{}
	if err := g.do(ctx, "subscribedSkus", http.MethodGet, "/subscribedSkus", nil, &skus); err != nil {
		return nil, err
	}
	cash.Set(cacheKey, skus.Value, cache.DefaultExpiration)
	return skus.Value, nil
}

func (g *GraphClient) assignLicenses(ctx context.Context, userID string, skuIDs []string) error {
	body := GraphAssignLicenseRequest{AddLicenses: []GraphAssignedLicense{}, RemoveLicenses: []string{}}
	for _, skuID := range skuIDs {
		body.AddLicenses = append(body.AddLicenses, GraphAssignedLicense{DisabledPlans: []string{}, SkuID: skuID})
	}
	return g.do(ctx, "assignLicenses", http.MethodPost, "/users/"+url.PathEscape(userID)+"/assignLicense", body, nil)
}

func classifyGroup(group GraphGroup) string {
	for _, groupType := range group.GroupTypes {
		if strings.EqualFold(groupType, "Unified") {
			return GROUP_CATEGORY_TEAMS
		}
	}
	switch {
	case group.SecurityEnabled && !group.MailEnabled:
		return GROUP_CATEGORY_SECURITY
	case group.MailEnabled && !group.SecurityEnabled:
		return GROUP_CATEGORY_DISTRIBUTION
	case group.MailEnabled && group.SecurityEnabled:
		return GROUP_CATEGORY_SHARED_MAILBOXES
	}
	return ""
}

// resolveLicenseSkus maps requested license names onto subscribed SKU ids.
// Unknown names and SKUs with no free seats are reported as problems.
func resolveLicenseSkus(requested []string, skus []GraphSku) (skuIDs []string, names []string, problems []string) {
	byPart := map[string]GraphSku{}
	for _, sku := range skus {
		byPart[strings.ToUpper(sku.SkuPartNumber)] = sku
	}

	seen := map[string]bool{}
	for _, name := range dedupeNames(requested) {
		part := strings.ToUpper(name)
		if mapped, ok := licenseFriendlyNames[strings.ToLower(name)]; ok {
			part = mapped
		}
		sku, ok := byPart[part]
		if !ok {
			problems = append(problems, fmt.Sprintf("license %q is not subscribed in this tenant", name))
			continue
		}
		if seen[sku.SkuID] {
			continue
		}
		if sku.PrepaidUnits.Enabled-sku.ConsumedUnits <= 0 {
			problems = append(problems, fmt.Sprintf("license %q has no available seats", name))
			continue
		}
		seen[sku.SkuID] = true
		skuIDs = append(skuIDs, sku.SkuID)
		names = append(names, name)
	}
	return skuIDs, names, problems
}

// licenseDisplayName is the inverse of licenseFriendlyNames, falling back to the part number.
func licenseDisplayName(skuPartNumber string) string {
	for friendly, part := range licenseFriendlyNames {
		if strings.EqualFold(part, skuPartNumber) {
			return strings.Title(friendly)
		}
	}
	return skuPartNumber
}

const (
	tempPasswordLength   = 16
	tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!#$%*-_"
)

func generateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for {
		buf := make([]byte, tempPasswordLength)
		for i := range buf {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			buf[i] = tempPasswordAlphabet[n.Int64()]
		}
		password := string(buf)
		if strings.ContainsAny(password, "ABCDEFGHJKLMNPQRSTUVWXYZ") &&
			strings.ContainsAny(password, "abcdefghijkmnopqrstuvwxyz") &&
			strings.ContainsAny(password, "23456789") {
			return password, nil
		}
	}
}

func buildGraphNewUser(req *ProvisioningRequest, password string) GraphNewUserRequest {
	account := req.AccountDetails
	extra := account.AdditionalDetails

	nickname := extra.MailNickname
	if nickname == "" {
		nickname = strings.Split(account.UserPrincipalName, "@")[0]
	}
	usageLocation := extra.UsageLocation
	if usageLocation == "" {
		usageLocation = DEFAULT_USAGE_LOCATION
	}

	newUser := GraphNewUserRequest{
		AccountEnabled: true,
		DisplayName:    req.displayName(),
		PasswordProfile: GraphPasswordProfile{
			Password:                      password,
			ForceChangePasswordNextSignIn: true,
		},
		MailNickname:      nickname,
		UserPrincipalName: account.UserPrincipalName,
		GivenName:         account.GivenName,
		Surname:           account.Surname,
		JobTitle:          extra.JobTitle,
		Department:        extra.Department,
		OfficeLocation:    extra.OfficeLocation,
		CompanyName:       extra.CompanyName,
		EmployeeID:        extra.EmployeeID,
		MobilePhone:       extra.MobilePhone,
		City:              extra.City,
		Country:           extra.Country,
		PostalCode:        extra.PostalCode,
		State:             extra.State,
		StreetAddress:     extra.StreetAddress,
		UsageLocation:     usageLocation,
	}
	if extra.BusinessPhone != "" {
		newUser.BusinessPhones = []string{extra.BusinessPhone}
	}
	return newUser
}

// graphDirectory adapts GraphClient to the dispatcher's step interfaces.
type graphDirectory struct {
	clientFor func(tenantID string) (*GraphClient, error)
}

func (d graphDirectory) LookupMirroredGroups(ctx context.Context, tenantID, userRef string) (MirroredGroups, error) {
	mirrored := MirroredGroups{Teams: []string{}, Security: []string{}, Distribution: []string{}, SharedMailboxes: []string{}}

	g, err := d.clientFor(tenantID)
	if err != nil {
		return mirrored, err
	}
	user, err := g.getUser(ctx, userRef)
	if err != nil {
		return mirrored, err
	}
	groups, err := g.listMemberGroups(ctx, user.ID)
	if err != nil {
		return mirrored, err
	}

	for _, group := range groups {
		category := classifyGroup(group)
		switch category {
		case GROUP_CATEGORY_TEAMS:
			mirrored.Teams = append(mirrored.Teams, group.DisplayName)
		case GROUP_CATEGORY_SECURITY:
			mirrored.Security = append(mirrored.Security, group.DisplayName)
		case GROUP_CATEGORY_DISTRIBUTION:
			mirrored.Distribution = append(mirrored.Distribution, group.DisplayName)
		case GROUP_CATEGORY_SHARED_MAILBOXES:
			mirrored.SharedMailboxes = append(mirrored.SharedMailboxes, group.DisplayName)
		default:
			continue
		}
		mirrored.Found = append(mirrored.Found, MirroredGroup{Category: category, DisplayName: group.DisplayName, ObjectID: group.ID})
	}
	InfoLog.Printf("mirrored %d groups from %s in tenant %s", len(groups), userRef, tenantID)
	return mirrored, nil
}

func (d graphDirectory) CreateUser(ctx context.Context, req *ProvisioningRequest) (CreatedUser, error) {
	upn := req.AccountDetails.UserPrincipalName
	failed := CreatedUser{ResultStatus: RESULT_FAILED, PrincipalName: upn}

	g, err := d.clientFor(req.TenantID)
	if err != nil {
		failed.Message = err.Error()
		return failed, err
	}

	existing, err := g.getUser(ctx, upn)
	if err == nil {
		failed.Message = fmt.Sprintf("%s already exists in the directory", upn)
		return failed, &GraphError{Op: "createUser", StatusCode: http.StatusConflict, Code: "UserAlreadyExists", Message: fmt.Sprintf("%s already exists (object id %s)", upn, existing.ID)}
	}
	if !isGraphNotFound(err) {
		failed.Message = err.Error()
		return failed, err
	}

	password, err := generateTempPassword()
	if err != nil {
		failed.Message = "could not generate a temporary password"
		return failed, err
	}

	created, err := g.createUser(ctx, buildGraphNewUser(req, password))
	if err != nil {
		failed.Message = err.Error()
		return failed, err
	}

	InfoLog.Println("created graph user: ", created.UserPrincipalName, " in tenant ", req.TenantID)
	return CreatedUser{
		ResultStatus:  RESULT_SUCCESS,
		Message:       "Created " + created.UserPrincipalName,
		PrincipalName: created.UserPrincipalName,
		ObjectID:      created.ID,
		TempPassword:  password,
	}, nil
}

func (d graphDirectory) AssignGroups(ctx context.Context, req *ProvisioningRequest, user CreatedUser, groups []GroupTarget) (GroupAssignmentResult, error) {
	result := GroupAssignmentResult{Errors: []string{}, GroupsAssigned: []string{}}

	g, err := d.clientFor(req.TenantID)
	if err != nil {
		return result, err
	}

	for _, target := range groups {
		group := &GraphGroup{ID: target.ObjectID, DisplayName: target.Name}
		if group.ID == "" {
			group, err = g.findGroupByName(ctx, target.Name)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", target.Name, err))
				continue
			}
		}
		if err := g.addGroupMember(ctx, group.ID, user.ObjectID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", target.Name, err))
			continue
		}
		result.GroupsAssigned = append(result.GroupsAssigned, group.DisplayName)
	}

	result.Message = fmt.Sprintf("Assigned %d of %d groups", len(result.GroupsAssigned), len(groups))
	return result, nil
}

func (d graphDirectory) AssignLicenses(ctx context.Context, req *ProvisioningRequest, user CreatedUser) (LicenseAssignmentResult, error) {
	result := LicenseAssignmentResult{ResultStatus: RESULT_FAILED, LicensesAssigned: []string{}, Errors: []string{}}

	g, err := d.clientFor(req.TenantID)
	if err != nil {
		return result, err
	}
	skus, err := g.subscribedSkus(ctx)
	if err != nil {
		return result, err
	}

	skuIDs, names, problems := resolveLicenseSkus(req.LicenseTypes, skus)
	result.Errors = append(result.Errors, problems...)
	if len(skuIDs) == 0 {
		result.Message = "none of the requested licenses could be assigned"
		return result, nil
	}

	if err := g.assignLicenses(ctx, user.ObjectID, skuIDs); err != nil {
		return result, err
	}

	sort.Strings(names)
	result.LicensesAssigned = names
	result.Message = fmt.Sprintf("Assigned %s", strings.Join(names, ", "))
	result.ResultStatus = RESULT_SUCCESS
	if len(problems) > 0 {
		result.ResultStatus = RESULT_PARTIAL
	}
	return result, nil
}
