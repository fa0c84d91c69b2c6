package main

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTicketNote(t *testing.T) {
	req := &ProvisioningRequest{
		TicketID:       "100245",
		AccountDetails: AccountDetails{GivenName: "Jane", Surname: "Doe", UserPrincipalName: "jane.doe@contoso.com"},
	}
	initializeMetadata(req, time.Now())
	recordStepResult(req, StepValidation, STATUS_SUCCESSFUL, "")
	recordStepResult(req, StepUserCreation, STATUS_SUCCESSFUL, "")
	recordStepResult(req, StepGroupAssignment, STATUS_PARTIAL, "group assignment errors: Finance RW: not found")
	recordWarning(req, "licenses E5 were requested but license assignment is not configured")

	note, err := formatTicketNote(req, stepOutputs{
		User:     &CreatedUser{PrincipalName: "jane.doe@contoso.com", TempPassword: "Temp-Pass-123!"},
		Groups:   &GroupAssignmentResult{GroupsAssigned: []string{"VPN Users", "All Staff"}},
		Metadata: req.Metadata,
	})
	if err != nil {
		t.Fatal(err)
	}
	if note.TicketID != "100245" {
		t.Errorf("ticket %q", note.TicketID)
	}
	for _, want := range []string{
		"New user provisioned: Jane Doe",
		"UPN: jane.doe@contoso.com",
		"Temporary password: Temp-Pass-123!",
		"Groups assigned: VPN Users, All Staff",
		"- groupAssignment: partial",
		"- licensing: pending",
		"- group assignment errors: Finance RW: not found",
		"Warnings:",
	} {
		if !strings.Contains(note.Message, want) {
			t.Errorf("note is missing %q:\n%s", want, note.Message)
		}
	}
	if strings.Contains(note.Message, "Licenses assigned") {
		t.Errorf("no licenses were assigned:\n%s", note.Message)
	}
}

func TestFormatTicketNoteNeedsTicketAndUser(t *testing.T) {
	req := &ProvisioningRequest{TicketID: " "}
	if _, err := formatTicketNote(req, stepOutputs{User: &CreatedUser{}}); err == nil {
		t.Error("expected an error for a blank ticket id")
	}
	req.TicketID = "1"
	if _, err := formatTicketNote(req, stepOutputs{}); err == nil {
		t.Error("expected an error without a created user")
	}
}
