package main

import (
	"testing"
	"time"
)

func TestInitializeMetadataSeedsPendingSteps(t *testing.T) {
	req := &ProvisioningRequest{}
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("PST", -8*3600))
	initializeMetadata(req, now)

	if req.Metadata.CreatedTimestamp != "2024-03-05T22:30:00Z" {
		t.Errorf("timestamp %q", req.Metadata.CreatedTimestamp)
	}
	for _, step := range trackedSteps {
		if req.Metadata.Status[step] != STATUS_PENDING {
			t.Errorf("%s = %s, want pending", step, req.Metadata.Status[step])
		}
	}
	if req.Metadata.Errors == nil || req.Metadata.Warnings == nil {
		t.Error("errors and warnings should start as empty lists")
	}

	req.Metadata.Errors = append(req.Metadata.Errors, "kept")
	initializeMetadata(req, time.Now())
	if len(req.Metadata.Errors) != 1 {
		t.Error("second initialize replaced existing metadata")
	}
}

func TestRecordStepResultAppendsErrors(t *testing.T) {
	req := &ProvisioningRequest{}
	recordStepResult(req, StepGroupAssignment, STATUS_FAILED, "first")
	recordStepResult(req, StepLicensing, STATUS_PARTIAL, "second")
	recordStepResult(req, StepLicensing, STATUS_SUCCESSFUL, "")
	recordWarning(req, "heads up")

	if got := req.Metadata.Errors; len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("errors %#v", got)
	}
	if req.Metadata.Status[StepGroupAssignment] != STATUS_FAILED {
		t.Errorf("groupAssignment = %s", req.Metadata.Status[StepGroupAssignment])
	}
	if req.Metadata.Status[StepLicensing] != STATUS_SUCCESSFUL {
		t.Errorf("licensing = %s", req.Metadata.Status[StepLicensing])
	}
	if req.Metadata.Status[StepUserCreation] != STATUS_PENDING {
		t.Errorf("userCreation = %s", req.Metadata.Status[StepUserCreation])
	}
	if len(req.Metadata.Warnings) != 1 {
		t.Errorf("warnings %#v", req.Metadata.Warnings)
	}
}

func TestCombineStatus(t *testing.T) {
	tests := []struct {
		previous, next, want StepStatus
	}{
		{STATUS_PENDING, STATUS_FAILED, STATUS_FAILED},
		{STATUS_SUCCESSFUL, STATUS_PENDING, STATUS_SUCCESSFUL},
		{STATUS_FAILED, STATUS_FAILED, STATUS_FAILED},
		{STATUS_FAILED, STATUS_SUCCESSFUL, STATUS_PARTIAL},
		{STATUS_SUCCESSFUL, STATUS_FAILED, STATUS_PARTIAL},
		{STATUS_PARTIAL, STATUS_SUCCESSFUL, STATUS_PARTIAL},
		{STATUS_SUCCESSFUL, STATUS_COMPLETED_WITH_WARNINGS, STATUS_COMPLETED_WITH_WARNINGS},
	}
	for _, tt := range tests {
		if got := combineStatus(tt.previous, tt.next); got != tt.want {
			t.Errorf("combineStatus(%s, %s) = %s, want %s", tt.previous, tt.next, got, tt.want)
		}
	}
}
