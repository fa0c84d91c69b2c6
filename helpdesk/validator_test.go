package main

import (
	"strings"
	"testing"
)

func validTree(t *testing.T) map[string]interface{} {
	t.Helper()
	return mustParseTree(t, `{
		"TenantId": "8f2c6b8e-0000-4000-8000-000000000001",
		"TicketId": "100245",
		"AccountDetails": {
			"GivenName": "Jane",
			"Surname": "Doe",
			"UserPrincipalName": "jane.doe@contoso.com",
			"AdditionalDetails": {"JobTitle": "Analyst"}
		},
		"LicenseTypes": ["Microsoft 365 Business Premium"]
	}`).(map[string]interface{})
}

func containsProblem(problems []string, fragments ...string) bool {
	for _, problem := range problems {
		matched := true
		for _, fragment := range fragments {
			if !strings.Contains(problem, fragment) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func TestValidateAcceptsMinimalRequest(t *testing.T) {
	problems := validateProvisioningRequest(validTree(t))
	if problems == nil || len(problems) != 0 {
		t.Fatalf("expected an empty problem list, got %#v", problems)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	tree := validTree(t)
	delete(tree, "TicketId")
	tree["AccountDetails"].(map[string]interface{})["UserPrincipalName"] = "not-an-email"

	problems := validateProvisioningRequest(tree)
	if len(problems) != 2 {
		t.Fatalf("expected exactly 2 problems, got %d: %#v", len(problems), problems)
	}
	if !containsProblem(problems, "TicketId") {
		t.Errorf("missing TicketId problem in %#v", problems)
	}
	if !containsProblem(problems, "UserPrincipalName", "not-an-email", "UPN") {
		t.Errorf("missing UPN format problem in %#v", problems)
	}
}

func TestValidateMirrorEmailConflictsWithTeams(t *testing.T) {
	tree := validTree(t)
	tree["Groups"] = mustParseTree(t, `{
		"Teams": ["Sales Team"],
		"MirroredUsers": {"MirroredUserEmail": "john.smith@contoso.com"}
	}`)

	problems := validateProvisioningRequest(tree)
	if !containsProblem(problems, "MirroredUserEmail", "conflicts", "Groups.Teams") {
		t.Fatalf("expected a mirroring conflict, got %#v", problems)
	}
}

func TestValidateMirrorGroupsConflictsWithDistribution(t *testing.T) {
	tree := validTree(t)
	tree["Groups"] = mustParseTree(t, `{
		"Distribution": ["All Staff"],
		"SharedMailboxes": ["support@contoso.com"],
		"MirroredUsers": {"MirroredUserGroups": "john.smith@contoso.com"}
	}`)

	problems := validateProvisioningRequest(tree)
	if len(problems) != 1 {
		t.Fatalf("expected one conflict, got %#v", problems)
	}
	if !containsProblem(problems, "MirroredUserGroups", "Groups.Distribution and Groups.SharedMailboxes") {
		t.Fatalf("unexpected problem %q", problems[0])
	}
}

func TestValidateMirroringWithOtherCategoriesIsLegal(t *testing.T) {
	tree := validTree(t)
	tree["Groups"] = mustParseTree(t, `{
		"Teams": [],
		"Distribution": ["All Staff"],
		"Software": ["Adobe Reader"],
		"MirroredUsers": {"MirroredUserEmail": "john.smith@contoso.com"}
	}`)

	if problems := validateProvisioningRequest(tree); len(problems) != 0 {
		t.Fatalf("expected no problems, got %#v", problems)
	}
}

func TestValidateGroupsBlockIsOptional(t *testing.T) {
	tree := validTree(t)
	if problems := validateProvisioningRequest(tree); len(problems) != 0 {
		t.Fatalf("absent Groups: %#v", problems)
	}

	tree["Groups"] = map[string]interface{}{}
	if problems := validateProvisioningRequest(tree); len(problems) != 0 {
		t.Fatalf("empty Groups: %#v", problems)
	}
}

func TestValidateShapeProblems(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(tree map[string]interface{})
		fragment string
	}{
		{"tenant missing", func(tree map[string]interface{}) { delete(tree, "TenantId") }, "TenantId is required"},
		{"ticket blank", func(tree map[string]interface{}) { tree["TicketId"] = "  " }, "TicketId is required"},
		{"ticket not a string", func(tree map[string]interface{}) { tree["TicketId"] = true }, "TicketId must be a string"},
		{"account missing", func(tree map[string]interface{}) { delete(tree, "AccountDetails") }, "AccountDetails is required"},
		{"account not object", func(tree map[string]interface{}) { tree["AccountDetails"] = "jane" }, "AccountDetails must be an object"},
		{"licenses not array", func(tree map[string]interface{}) { tree["LicenseTypes"] = "E3" }, "LicenseTypes must be an array"},
		{"licenses bad item", func(tree map[string]interface{}) { tree["LicenseTypes"] = []interface{}{"E3", 5.0} }, "LicenseTypes[1] must be a string"},
		{"groups not object", func(tree map[string]interface{}) { tree["Groups"] = []interface{}{} }, "Groups must be an object"},
		{"bad mirror email", func(tree map[string]interface{}) {
			tree["Groups"] = map[string]interface{}{"MirroredUsers": map[string]interface{}{"MirroredUserEmail": "john"}}
		}, "not a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := validTree(t)
			tt.mutate(tree)
			problems := validateProvisioningRequest(tree)
			if !containsProblem(problems, tt.fragment) {
				t.Fatalf("expected %q in %#v", tt.fragment, problems)
			}
		})
	}
}

func TestValidateFieldNamesAreCaseInsensitive(t *testing.T) {
	tree := mustParseTree(t, `{
		"tenantId": "t1",
		"ticketId": "42",
		"accountDetails": {"givenName": "Jane", "surname": "Doe", "userPrincipalName": "jane@contoso.com"}
	}`).(map[string]interface{})

	if problems := validateProvisioningRequest(tree); len(problems) != 0 {
		t.Fatalf("expected no problems, got %#v", problems)
	}
}

func TestFoldDuplicateFieldsPrefersFilledCopy(t *testing.T) {
	tree := mustParseTree(t, `{
		"TenantId": "t-1",
		"tenantid": "",
		"TicketId": "42",
		"ticketId": "42",
		"AccountDetails": {"GivenName": "Jane", "givenName": null, "Surname": "Doe", "UserPrincipalName": "jane@contoso.com"}
	}`).(map[string]interface{})

	problems, warnings := foldDuplicateFields(tree, "")
	if len(problems) != 0 {
		t.Fatalf("problems %#v", problems)
	}
	if len(warnings) != 3 {
		t.Errorf("warnings %#v", warnings)
	}
	if len(tree) != 3 || tree["TenantId"] != "t-1" {
		t.Fatalf("tree %#v", tree)
	}
	details := tree["AccountDetails"].(map[string]interface{})
	if _, ok := details["givenName"]; ok {
		t.Errorf("blank nested copy kept: %#v", details)
	}
	if problems := validateProvisioningRequest(tree); len(problems) != 0 {
		t.Errorf("folded tree should validate, got %#v", problems)
	}
}

func TestFoldDuplicateFieldsReportsConflicts(t *testing.T) {
	tree := mustParseTree(t, `{
		"TenantId": "t-1",
		"tenantId": "t-2",
		"TicketId": "42",
		"AccountDetails": {"GivenName": "Jane", "Surname": "Doe", "UserPrincipalName": "jane@contoso.com", "userPrincipalName": "not-an-email"}
	}`).(map[string]interface{})

	problems, _ := foldDuplicateFields(tree, "")
	if len(problems) != 2 {
		t.Fatalf("problems %#v", problems)
	}
	if !containsProblem(problems, "TenantId", "more than once") {
		t.Errorf("tenant conflict missing: %#v", problems)
	}
	if !containsProblem(problems, "AccountDetails.UserPrincipalName", "more than once") {
		t.Errorf("upn conflict missing: %#v", problems)
	}
}
