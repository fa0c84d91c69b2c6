package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
)

type failurePolicy int

const (
	continueOnFailure failurePolicy = iota
	abortOnFailure
	abortAsPartial
)

type errorKind int

const (
	kindNone errorKind = iota
	kindInput
	kindRemote
	kindTimeout
	kindUnexpected
)

type stepResult struct {
	status   StepStatus
	kind     errorKind
	message  string
	warnings []string
}

func okResult(status StepStatus, warnings ...string) stepResult {
	return stepResult{status: status, warnings: warnings}
}

func failResult(kind errorKind, format string, args ...interface{}) stepResult {
	return stepResult{status: STATUS_FAILED, kind: kind, message: fmt.Sprintf(format, args...)}
}

func partialResult(message string) stepResult {
	return stepResult{status: STATUS_PARTIAL, kind: kindRemote, message: message}
}

func (r stepResult) failed() bool {
	return r.status == STATUS_FAILED
}

type pipelineStep struct {
	name      string
	tracks    StepName
	onFailure failurePolicy
	// skip reports whether the step should not run, with an optional warning to record
	skip func(pc *PipelineContext) (bool, string)
	run  func(ctx context.Context, pc *PipelineContext) stepResult
}

func (d *Dispatcher) pipeline() []pipelineStep {
	return []pipelineStep{
		{name: "mirrorLookup", onFailure: continueOnFailure, skip: d.skipMirrorLookup, run: d.runMirrorLookup},
		{name: "userCreation", tracks: StepUserCreation, onFailure: abortOnFailure, run: d.runUserCreation},
		{name: "groupAssignment", tracks: StepGroupAssignment, onFailure: continueOnFailure, skip: skipGroupAssignment, run: d.runGroupAssignment},
		{name: "licensing", tracks: StepLicensing, onFailure: continueOnFailure, skip: d.skipLicensing, run: d.runLicensing},
		{name: "noteFormatting", onFailure: abortAsPartial, run: d.runNoteFormatting},
		{name: "notePublish", onFailure: continueOnFailure, skip: d.skipNotePublish, run: d.runNotePublish},
	}
}

// classifyError maps a collaborator error onto the dispatcher's error kinds.
func classifyError(err error) errorKind {
	if err == nil {
		return kindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return kindTimeout
	}
	var graphErr *GraphError
	if errors.As(err, &graphErr) && graphErr.StatusCode >= 400 && graphErr.StatusCode < 500 && graphErr.StatusCode != http.StatusTooManyRequests {
		return kindInput
	}
	var cwErr *ConnectWiseError
	if errors.As(err, &cwErr) && cwErr.StatusCode >= 400 && cwErr.StatusCode < 500 {
		return kindInput
	}
	return kindRemote
}

func (d *Dispatcher) skipMirrorLookup(pc *PipelineContext) (bool, string) {
	mirror := pc.Request.mirroredUsers()
	if mirror.MirroredUserEmail == "" && mirror.MirroredUserGroups == "" {
		return true, ""
	}
	if d.Mirrors == nil {
		pc.mirrorAttempted, pc.mirrorFailed = 1, 1
		return true, "mirrored groups requested but no directory lookup is configured"
	}
	return false, ""
}

func (d *Dispatcher) runMirrorLookup(ctx context.Context, pc *PipelineContext) stepResult {
	req := pc.Request
	mirror := req.mirroredUsers()
	problems := []string{}
	kind := kindNone

	if mirror.MirroredUserEmail != "" {
		pc.mirrorAttempted++
		groups, err := d.lookupMirroredGroups(ctx, req.TenantID, mirror.MirroredUserEmail)
		if err != nil {
			pc.mirrorFailed++
			kind = classifyError(err)
			problems = append(problems, fmt.Sprintf("mirrored group lookup for %s failed: %v", mirror.MirroredUserEmail, err))
		} else {
			pc.Mirrored.adopt(groups, GROUP_CATEGORY_TEAMS, GROUP_CATEGORY_SECURITY)
		}
	}

	if mirror.MirroredUserGroups != "" {
		pc.mirrorAttempted++
		groups, err := d.lookupMirroredGroups(ctx, req.TenantID, mirror.MirroredUserGroups)
		if err != nil {
			pc.mirrorFailed++
			kind = classifyError(err)
			problems = append(problems, fmt.Sprintf("mirrored group lookup for %s failed: %v", mirror.MirroredUserGroups, err))
		} else {
			pc.Mirrored.adopt(groups, GROUP_CATEGORY_DISTRIBUTION, GROUP_CATEGORY_SHARED_MAILBOXES)
		}
	}

	if len(problems) == 0 {
		return okResult(STATUS_SUCCESSFUL)
	}
	if pc.mirrorFailed < pc.mirrorAttempted {
		return partialResult(strings.Join(problems, "; "))
	}
	return failResult(kind, "%s", strings.Join(problems, "; "))
}

// lookupMirroredGroups retries transient failures; directory 4xx answers are final.
func (d *Dispatcher) lookupMirroredGroups(ctx context.Context, tenantID, userRef string) (MirroredGroups, error) {
	var operation backoff.Operation[MirroredGroups] = func() (MirroredGroups, error) {
		groups, err := d.Mirrors.LookupMirroredGroups(ctx, tenantID, userRef)
		if err != nil && classifyError(err) == kindInput {
			return groups, backoff.Permanent(err)
		}
		return groups, err
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(d.mirrorBackOff()),
		backoff.WithMaxTries(d.mirrorAttempts()),
	)
}

func (d *Dispatcher) runUserCreation(ctx context.Context, pc *PipelineContext) stepResult {
	req := pc.Request
	upn := req.AccountDetails.UserPrincipalName
	user, err := d.Users.CreateUser(ctx, req)
	if err != nil {
		return failResult(classifyError(err), "user creation failed for %s: %v", upn, err)
	}
	if user.ResultStatus != RESULT_SUCCESS {
		msg := user.Message
		if msg == "" {
			msg = "the directory did not confirm the new account"
		}
		return failResult(kindRemote, "user creation failed for %s: %s", upn, msg)
	}
	if user.PrincipalName == "" {
		user.PrincipalName = upn
	}
	pc.User = &user
	return okResult(STATUS_SUCCESSFUL)
}

// groupsToAssign merges the explicit request groups with whatever the mirror lookup found.
func (pc *PipelineContext) groupsToAssign() []GroupTarget {
	targets := []GroupTarget{}
	for _, name := range pc.Request.explicitGroups() {
		targets = append(targets, GroupTarget{Name: name})
	}
	return dedupeTargets(append(targets, pc.Mirrored.targets()...))
}

func skipGroupAssignment(pc *PipelineContext) (bool, string) {
	if pc.User == nil {
		return true, ""
	}
	if len(pc.groupsToAssign()) == 0 && pc.mirrorFailed == 0 {
		return true, ""
	}
	return false, ""
}

func (d *Dispatcher) runGroupAssignment(ctx context.Context, pc *PipelineContext) stepResult {
	groups := pc.groupsToAssign()
	mirrorIncomplete := pc.mirrorFailed > 0

	if len(groups) == 0 {
		// only reachable when every mirror lookup failed; the lookup error is already recorded
		return stepResult{status: STATUS_FAILED, kind: kindRemote}
	}

	result, err := d.Groups.AssignGroups(ctx, pc.Request, *pc.User, groups)
	if err != nil {
		return failResult(classifyError(err), "group assignment failed: %v", err)
	}
	pc.Groups = &result

	var status StepStatus
	switch {
	case len(result.Errors) == 0:
		status = STATUS_SUCCESSFUL
	case len(result.GroupsAssigned) > 0:
		status = STATUS_PARTIAL
	default:
		status = STATUS_FAILED
	}
	if mirrorIncomplete {
		status = combineStatus(STATUS_FAILED, status)
	}

	res := stepResult{status: status}
	if len(result.Errors) > 0 {
		res.kind = kindRemote
		res.message = "group assignment errors: " + strings.Join(result.Errors, "; ")
	}
	return res
}

func (d *Dispatcher) skipLicensing(pc *PipelineContext) (bool, string) {
	if pc.User == nil || len(pc.Request.LicenseTypes) == 0 {
		return true, ""
	}
	if d.Licenses == nil {
		return true, fmt.Sprintf("licenses %s were requested but license assignment is not configured", strings.Join(pc.Request.LicenseTypes, ", "))
	}
	return false, ""
}

func (d *Dispatcher) runLicensing(ctx context.Context, pc *PipelineContext) stepResult {
	result, err := d.Licenses.AssignLicenses(ctx, pc.Request, *pc.User)
	if err != nil {
		return failResult(classifyError(err), "license assignment failed: %v", err)
	}
	pc.Licenses = &result

	switch result.ResultStatus {
	case RESULT_SUCCESS:
		if len(result.Errors) > 0 {
			return okResult(STATUS_COMPLETED_WITH_WARNINGS, result.Errors...)
		}
		return okResult(STATUS_SUCCESSFUL)
	case RESULT_PARTIAL:
		return partialResult("license assignment incomplete: " + strings.Join(append([]string{result.Message}, result.Errors...), "; "))
	default:
		return failResult(kindRemote, "license assignment failed: %s", strings.Join(append([]string{result.Message}, result.Errors...), "; "))
	}
}

func (d *Dispatcher) runNoteFormatting(ctx context.Context, pc *PipelineContext) stepResult {
	format := d.FormatNote
	if format == nil {
		format = formatTicketNote
	}
	note, err := format(pc.Request, pc.outputs())
	if err != nil {
		return failResult(kindUnexpected, "ticket note could not be formatted: %v", err)
	}
	pc.Note = &note
	return okResult(STATUS_SUCCESSFUL)
}

func (d *Dispatcher) skipNotePublish(pc *PipelineContext) (bool, string) {
	if pc.Note == nil {
		return true, ""
	}
	if d.Notes == nil {
		return true, "ticket note was not published because no ticketing system is configured"
	}
	return false, ""
}

func (d *Dispatcher) runNotePublish(ctx context.Context, pc *PipelineContext) stepResult {
	result, err := d.Notes.PublishTicketNote(ctx, pc.Note.TicketID, *pc.Note)
	if err != nil {
		return failResult(classifyError(err), "ticket note publish failed for ticket %s: %v", pc.Note.TicketID, err)
	}
	pc.Publish = &result
	if result.Status != NOTE_PUBLISH_SUCCESS {
		return failResult(kindRemote, "ticket note publish failed for ticket %s: %s", pc.Note.TicketID, result.Message)
	}
	return okResult(STATUS_SUCCESSFUL)
}

func (pc *PipelineContext) outputs() stepOutputs {
	return stepOutputs{
		User:     pc.User,
		Mirrored: pc.Mirrored,
		Groups:   pc.Groups,
		Licenses: pc.Licenses,
		Metadata: pc.Request.Metadata,
	}
}
