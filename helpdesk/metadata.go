package main

import "time"

// initializeMetadata attaches a fresh metadata record unless one is already present.
func initializeMetadata(req *ProvisioningRequest, now time.Time) {
	if req.Metadata != nil {
		return
	}
	status := make(map[StepName]StepStatus, len(trackedSteps))
	for _, step := range trackedSteps {
		status[step] = STATUS_PENDING
	}
	req.Metadata = &ProvisioningMetadata{
		CreatedTimestamp: now.UTC().Format(time.RFC3339),
		Status:           status,
		Errors:           []string{},
		Warnings:         []string{},
	}
}

func recordStepResult(req *ProvisioningRequest, step StepName, outcome StepStatus, errMsg string) {
	initializeMetadata(req, time.Now())
	req.Metadata.Status[step] = outcome
	if errMsg != "" {
		req.Metadata.Errors = append(req.Metadata.Errors, errMsg)
	}
}

func recordError(req *ProvisioningRequest, errMsg string) {
	initializeMetadata(req, time.Now())
	req.Metadata.Errors = append(req.Metadata.Errors, errMsg)
}

func recordWarning(req *ProvisioningRequest, msg string) {
	initializeMetadata(req, time.Now())
	req.Metadata.Warnings = append(req.Metadata.Warnings, msg)
}

// combineStatus merges two outcomes reported for the same step. A failure is never hidden by a later success.
func combineStatus(previous, next StepStatus) StepStatus {
	switch {
	case previous == STATUS_PENDING:
		return next
	case next == STATUS_PENDING:
		return previous
	case previous == next:
		return previous
	case previous == STATUS_PARTIAL || next == STATUS_PARTIAL:
		return STATUS_PARTIAL
	case previous == STATUS_FAILED || next == STATUS_FAILED:
		// one side failed, the other made progress
		return STATUS_PARTIAL
	default:
		return STATUS_COMPLETED_WITH_WARNINGS
	}
}
