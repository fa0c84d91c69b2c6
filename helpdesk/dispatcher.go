package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DEFAULT_STEP_TIMEOUT    = 30 * time.Second
	DEFAULT_MIRROR_ATTEMPTS = 3
)

type mirrorLookup interface {
	LookupMirroredGroups(ctx context.Context, tenantID, userRef string) (MirroredGroups, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, req *ProvisioningRequest) (CreatedUser, error)
}

type groupAssigner interface {
	AssignGroups(ctx context.Context, req *ProvisioningRequest, user CreatedUser, groups []GroupTarget) (GroupAssignmentResult, error)
}

type licenseAssigner interface {
	AssignLicenses(ctx context.Context, req *ProvisioningRequest, user CreatedUser) (LicenseAssignmentResult, error)
}

type tenantChecker interface {
	CheckTenant(tenantID string) error
}

type ticketNotePublisher interface {
	PublishTicketNote(ctx context.Context, ticketID string, note TicketNote) (NotePublishResult, error)
}

// Dispatcher runs one provisioning request through the step table.
// Licenses and Notes may be nil; the matching steps are then skipped with a warning.
// A nil Tenants accepts any TenantId.
type Dispatcher struct {
	Tenants  tenantChecker
	Mirrors  mirrorLookup
	Users    userCreator
	Groups   groupAssigner
	Licenses licenseAssigner
	Notes    ticketNotePublisher

	FormatNote     func(req *ProvisioningRequest, outputs stepOutputs) (TicketNote, error)
	StepTimeout    time.Duration
	MirrorAttempts uint
	MirrorBackOff  func() backoff.BackOff
	Now            func() time.Time
}

// PipelineContext is the per-request state shared by the steps of one run.
type PipelineContext struct {
	Request  *ProvisioningRequest
	Mirrored MirroredGroups
	User     *CreatedUser
	Groups   *GroupAssignmentResult
	Licenses *LicenseAssignmentResult
	Note     *TicketNote
	Publish  *NotePublishResult

	mirrorAttempted int
	mirrorFailed    int
}

type DispatchResult struct {
	Response   ProvisioningResponse
	HTTPStatus int
	Request    *ProvisioningRequest
	Duration   time.Duration
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) stepTimeout() time.Duration {
	if d.StepTimeout > 0 {
		return d.StepTimeout
	}
	return DEFAULT_STEP_TIMEOUT
}

func (d *Dispatcher) mirrorAttempts() uint {
	if d.MirrorAttempts > 0 {
		return d.MirrorAttempts
	}
	return DEFAULT_MIRROR_ATTEMPTS
}

func (d *Dispatcher) mirrorBackOff() backoff.BackOff {
	if d.MirrorBackOff != nil {
		return d.MirrorBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 4 * time.Second
	return b
}

// Dispatch never returns an error: every outcome, including a panic inside a step, becomes a response.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (result DispatchResult) {
	start := time.Now()
	req := &ProvisioningRequest{}
	initializeMetadata(req, d.now())
	pc := &PipelineContext{Request: req}
	result.Request = req

	defer func() {
		if recovered := recover(); recovered != nil {
			ErrorLog.Printf("dispatcher panic on ticket %q: %v\n%s", req.TicketID, recovered, debug.Stack())
			recordError(req, fmt.Sprintf("unexpected error: %v", recovered))
			result = finishRun(pc, RESULT_FAILED, "An unexpected error stopped the provisioning run.", http.StatusInternalServerError)
		}
		result.Duration = time.Since(start)
		observeDispatch(result.Response.Status, result.Duration)
	}()

	tree, err := parseRequestBody(body)
	if err != nil {
		recordStepResult(req, StepValidation, STATUS_FAILED, err.Error())
		return finishRun(pc, RESULT_FAILED, "The request body could not be parsed.", http.StatusBadRequest)
	}

	if sanitized, ok := sanitizePlaceholders(tree).(map[string]interface{}); ok {
		tree = sanitized
	} else {
		tree = map[string]interface{}{}
	}
	for _, warning := range normalizeRequestTree(tree) {
		recordWarning(req, warning)
	}
	conflicts, warnings := foldDuplicateFields(tree, "")
	for _, warning := range warnings {
		recordWarning(req, warning)
	}

	if problems := append(conflicts, validateProvisioningRequest(tree)...); len(problems) > 0 {
		if ticketID, ok := lookupField(tree, "TicketId"); ok {
			req.TicketID, _ = ticketID.(string)
		}
		recordStepResult(req, StepValidation, STATUS_FAILED, "")
		for _, problem := range problems {
			recordError(req, problem)
		}
		return finishRun(pc, RESULT_FAILED, "Validation failed.", http.StatusBadRequest)
	}
	if err := decodeRequestTree(tree, req); err != nil {
		recordStepResult(req, StepValidation, STATUS_FAILED, err.Error())
		return finishRun(pc, RESULT_FAILED, "Validation failed.", http.StatusBadRequest)
	}
	if d.Tenants != nil {
		if err := d.Tenants.CheckTenant(req.TenantID); err != nil {
			if errors.Is(err, errTenantNotRegistered) || errors.Is(err, errTenantDisabled) {
				recordStepResult(req, StepValidation, STATUS_FAILED, err.Error())
				return finishRun(pc, RESULT_FAILED, "Validation failed.", http.StatusBadRequest)
			}
			ErrorLog.Println("dispatcher CheckTenant err: ", err, " tenant: ", req.TenantID)
			recordStepResult(req, StepValidation, STATUS_FAILED, "tenant lookup failed: "+err.Error())
			return finishRun(pc, RESULT_FAILED, "The tenant registry could not be checked.", http.StatusInternalServerError)
		}
	}
	recordStepResult(req, StepValidation, STATUS_SUCCESSFUL, "")

	for _, step := range d.pipeline() {
		if step.skip != nil {
			if skip, warning := step.skip(pc); skip {
				if warning != "" {
					recordWarning(req, warning)
				}
				continue
			}
		}

		res := d.runStep(ctx, step, pc)
		observeStep(step.name, res.status)
		applyStepResult(pc, step, res)
		if !res.failed() {
			continue
		}

		switch step.onFailure {
		case abortOnFailure:
			status := http.StatusInternalServerError
			if res.kind == kindInput {
				status = http.StatusBadRequest
			}
			return finishRun(pc, RESULT_FAILED, fmt.Sprintf("Provisioning stopped at %s; no later steps were run.", step.name), status)
		case abortAsPartial:
			return finishRun(pc, RESULT_PARTIAL, "The user was provisioned but the ticket note could not be prepared.", http.StatusOK)
		}
	}

	if len(req.Metadata.Errors) > 0 {
		return finishRun(pc, RESULT_PARTIAL, "The user was provisioned with errors; see metadata for the failed steps.", http.StatusOK)
	}
	return finishRun(pc, RESULT_SUCCESS, fmt.Sprintf("Provisioned %s for ticket %s.", pc.User.PrincipalName, req.TicketID), http.StatusOK)
}

func (d *Dispatcher) runStep(ctx context.Context, step pipelineStep, pc *PipelineContext) stepResult {
	stepCtx, cancel := context.WithTimeout(ctx, d.stepTimeout())
	defer cancel()

	res := step.run(stepCtx, pc)
	if res.failed() && res.kind != kindTimeout && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		res.kind = kindTimeout
	}
	if res.kind == kindTimeout {
		res.message = fmt.Sprintf("%s timed out after %s: %s", step.name, d.stepTimeout(), res.message)
	}
	return res
}

// applyStepResult writes a step's outcome into the request metadata.
func applyStepResult(pc *PipelineContext, step pipelineStep, res stepResult) {
	req := pc.Request
	for _, warning := range res.warnings {
		recordWarning(req, warning)
	}
	if step.tracks == "" {
		if res.message != "" {
			recordError(req, res.message)
		}
		return
	}
	recordStepResult(req, step.tracks, res.status, res.message)
}

func finishRun(pc *PipelineContext, status, message string, httpStatus int) DispatchResult {
	req := pc.Request
	resp := ProvisioningResponse{
		Status:   status,
		Message:  message,
		TicketID: req.TicketID,
		Metadata: req.Metadata,
		Errors:   append([]string{}, req.Metadata.Errors...),
	}
	if pc.User != nil && pc.User.PrincipalName != "" {
		upn := pc.User.PrincipalName
		resp.UPN = &upn
	}
	InfoLog.Printf("dispatch ticket=%s tenant=%s status=%s http=%d errors=%d", req.TicketID, req.TenantID, status, httpStatus, len(resp.Errors))
	return DispatchResult{Response: resp, HTTPStatus: httpStatus, Request: req}
}

func parseRequestBody(body []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("request body is empty")
	}
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	tree, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, errors.New("request body must be a JSON object")
	}
	return tree, nil
}

// normalizeRequestTree rewrites legacy or loosely typed fields in place and returns warnings for the caller.
func normalizeRequestTree(tree map[string]interface{}) []string {
	warnings := []string{}
	for key := range tree {
		if strings.EqualFold(key, "metadata") {
			delete(tree, key)
			warnings = append(warnings, "caller supplied metadata was ignored")
		}
	}

	// ticket ids come through some forms as numbers
	for key, value := range tree {
		if !strings.EqualFold(key, "TicketId") {
			continue
		}
		if number, ok := value.(float64); ok {
			tree[key] = strconv.FormatFloat(number, 'f', -1, 64)
		}
	}

	for key, value := range tree {
		if !strings.EqualFold(key, "RequestedLicense") {
			continue
		}
		delete(tree, key)
		if _, present := lookupField(tree, "LicenseTypes"); present {
			warnings = append(warnings, "RequestedLicense ignored because LicenseTypes is also present")
			continue
		}
		if single, ok := value.(string); ok {
			value = []interface{}{single}
		}
		tree["LicenseTypes"] = value
		warnings = append(warnings, "RequestedLicense is deprecated and was read as LicenseTypes")
	}
	return warnings
}

func decodeRequestTree(tree map[string]interface{}, req *ProvisioningRequest) error {
	encoded, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("request could not be re-encoded: %w", err)
	}
	if err := json.Unmarshal(encoded, req); err != nil {
		return fmt.Errorf("request does not match the provisioning schema: %w", err)
	}
	return nil
}
