package main

import "strings"

type StepName string

const (
	StepValidation      StepName = "validation"
	StepGroupAssignment StepName = "groupAssignment"
	StepUserCreation    StepName = "userCreation"
	StepLicensing       StepName = "licensing"
)

// order used when reporting step statuses
var trackedSteps = []StepName{StepValidation, StepUserCreation, StepGroupAssignment, StepLicensing}

type StepStatus string

const (
	STATUS_PENDING                 StepStatus = "pending"
	STATUS_SUCCESSFUL              StepStatus = "successful"
	STATUS_FAILED                  StepStatus = "failed"
	STATUS_PARTIAL                 StepStatus = "partial"
	STATUS_COMPLETED_WITH_WARNINGS StepStatus = "completed_with_warnings"
)

const (
	RESULT_SUCCESS = "success"
	RESULT_PARTIAL = "partial"
	RESULT_FAILED  = "failed"
)

const (
	GROUP_CATEGORY_TEAMS            = "Teams"
	GROUP_CATEGORY_SECURITY         = "Security"
	GROUP_CATEGORY_DISTRIBUTION     = "Distribution"
	GROUP_CATEGORY_SHARED_MAILBOXES = "SharedMailboxes"
	GROUP_CATEGORY_SOFTWARE         = "Software"
)

var groupCategories = []string{
	GROUP_CATEGORY_SOFTWARE,
	GROUP_CATEGORY_TEAMS,
	GROUP_CATEGORY_SECURITY,
	GROUP_CATEGORY_DISTRIBUTION,
	GROUP_CATEGORY_SHARED_MAILBOXES,
}

type ProvisioningRequest struct {
	TenantID       string                `json:"TenantId"`
	TicketID       string                `json:"TicketId"`
	AccountDetails AccountDetails        `json:"AccountDetails"`
	LicenseTypes   []string              `json:"LicenseTypes,omitempty"`
	Groups         *GroupsRequest        `json:"Groups,omitempty"`
	Metadata       *ProvisioningMetadata `json:"-"`
}

type AccountDetails struct {
	GivenName         string            `json:"GivenName"`
	Surname           string            `json:"Surname"`
	UserPrincipalName string            `json:"UserPrincipalName"`
	AdditionalDetails AdditionalDetails `json:"AdditionalDetails"`
}

type AdditionalDetails struct {
	DisplayName    string `json:"DisplayName,omitempty"`
	MailNickname   string `json:"MailNickname,omitempty"`
	JobTitle       string `json:"JobTitle,omitempty"`
	Department     string `json:"Department,omitempty"`
	OfficeLocation string `json:"OfficeLocation,omitempty"`
	CompanyName    string `json:"CompanyName,omitempty"`
	EmployeeID     string `json:"EmployeeId,omitempty"`
	MobilePhone    string `json:"MobilePhone,omitempty"`
	BusinessPhone  string `json:"BusinessPhone,omitempty"`
	StreetAddress  string `json:"StreetAddress,omitempty"`
	City           string `json:"City,omitempty"`
	State          string `json:"State,omitempty"`
	PostalCode     string `json:"PostalCode,omitempty"`
	Country        string `json:"Country,omitempty"`
	UsageLocation  string `json:"UsageLocation,omitempty"`
}

type GroupsRequest struct {
	Teams           []string      `json:"Teams,omitempty"`
	Security        []string      `json:"Security,omitempty"`
	Distribution    []string      `json:"Distribution,omitempty"`
	SharedMailboxes []string      `json:"SharedMailboxes,omitempty"`
	Software        []string      `json:"Software,omitempty"`
	MirroredUsers   MirroredUsers `json:"MirroredUsers"`
}

type MirroredUsers struct {
	MirroredUserEmail  string `json:"MirroredUserEmail,omitempty"`
	MirroredUserGroups string `json:"MirroredUserGroups,omitempty"`
}

type ProvisioningMetadata struct {
	CreatedTimestamp string                  `json:"createdTimestamp"`
	Status           map[StepName]StepStatus `json:"status"`
	Errors           []string                `json:"errors"`
	Warnings         []string                `json:"warnings"`
}

type ProvisioningResponse struct {
	Status   string                `json:"status"`
	Message  string                `json:"message"`
	TicketID string                `json:"ticketId"`
	UPN      *string               `json:"upn"`
	Metadata *ProvisioningMetadata `json:"metadata"`
	Errors   []string              `json:"errors"`
}

// results handed back by the step executors

type MirroredGroups struct {
	Teams           []string `json:"teams"`
	Security        []string `json:"security"`
	Distribution    []string `json:"distribution"`
	SharedMailboxes []string `json:"sharedMailboxes"`
	// Found holds the directory objects behind the names above, when the lookup knows them
	Found []MirroredGroup `json:"-"`
}

type MirroredGroup struct {
	Category    string
	DisplayName string
	ObjectID    string
}

// GroupTarget is one group to add the new user to. ObjectID is set when the
// group is already known, otherwise the group is resolved by Name.
type GroupTarget struct {
	Name     string
	ObjectID string
}

type CreatedUser struct {
	ResultStatus  string `json:"resultStatus"`
	Message       string `json:"message"`
	PrincipalName string `json:"principalName"`
	ObjectID      string `json:"objectId"`
	TempPassword  string `json:"-"`
}

type GroupAssignmentResult struct {
	Message        string   `json:"message"`
	Errors         []string `json:"errors"`
	GroupsAssigned []string `json:"groupsAssigned"`
}

type LicenseAssignmentResult struct {
	Message          string   `json:"message"`
	ResultStatus     string   `json:"resultStatus"`
	LicensesAssigned []string `json:"licensesAssigned"`
	Errors           []string `json:"errors"`
}

type TicketNote struct {
	TicketID string `json:"ticketId"`
	Message  string `json:"message"`
}

const (
	NOTE_PUBLISH_SUCCESS = "Success"
	NOTE_PUBLISH_FAILURE = "Failure"
)

type NotePublishResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r *ProvisioningRequest) displayName() string {
	if r.AccountDetails.AdditionalDetails.DisplayName != "" {
		return r.AccountDetails.AdditionalDetails.DisplayName
	}
	return strings.TrimSpace(r.AccountDetails.GivenName + " " + r.AccountDetails.Surname)
}

func (r *ProvisioningRequest) mirroredUsers() MirroredUsers {
	if r.Groups == nil {
		return MirroredUsers{}
	}
	return MirroredUsers{
		MirroredUserEmail:  strings.TrimSpace(r.Groups.MirroredUsers.MirroredUserEmail),
		MirroredUserGroups: strings.TrimSpace(r.Groups.MirroredUsers.MirroredUserGroups),
	}
}

// explicitGroups lists every group named directly on the request, in category order.
func (r *ProvisioningRequest) explicitGroups() []string {
	if r.Groups == nil {
		return nil
	}
	all := []string{}
	all = append(all, r.Groups.Software...)
	all = append(all, r.Groups.Teams...)
	all = append(all, r.Groups.Security...)
	all = append(all, r.Groups.Distribution...)
	all = append(all, r.Groups.SharedMailboxes...)
	return all
}

// adopt copies the given categories from a lookup result.
func (m *MirroredGroups) adopt(src MirroredGroups, categories ...string) {
	for _, category := range categories {
		switch category {
		case GROUP_CATEGORY_TEAMS:
			m.Teams = src.Teams
		case GROUP_CATEGORY_SECURITY:
			m.Security = src.Security
		case GROUP_CATEGORY_DISTRIBUTION:
			m.Distribution = src.Distribution
		case GROUP_CATEGORY_SHARED_MAILBOXES:
			m.SharedMailboxes = src.SharedMailboxes
		}
		for _, found := range src.Found {
			if found.Category == category {
				m.Found = append(m.Found, found)
			}
		}
	}
}

func (m MirroredGroups) all() []string {
	all := []string{}
	all = append(all, m.Teams...)
	all = append(all, m.Security...)
	all = append(all, m.Distribution...)
	all = append(all, m.SharedMailboxes...)
	return all
}

// targets lists the mirrored groups to assign. Groups with a known object id
// are kept apart even when their display names collide.
func (m MirroredGroups) targets() []GroupTarget {
	if len(m.Found) == 0 {
		targets := []GroupTarget{}
		for _, name := range m.all() {
			targets = append(targets, GroupTarget{Name: name})
		}
		return targets
	}
	targets := []GroupTarget{}
	for _, found := range m.Found {
		targets = append(targets, GroupTarget{Name: found.DisplayName, ObjectID: found.ObjectID})
	}
	return targets
}

// dedupeTargets drops blank names and repeats. Targets with an object id are
// deduplicated by id; a name-only target is dropped when any other target
// carries the same name.
func dedupeTargets(targets []GroupTarget) []GroupTarget {
	resolvedNames := map[string]bool{}
	for _, target := range targets {
		if target.ObjectID != "" {
			resolvedNames[strings.ToLower(strings.TrimSpace(target.Name))] = true
		}
	}

	seen := map[string]bool{}
	out := []GroupTarget{}
	for _, target := range targets {
		target.Name = strings.TrimSpace(target.Name)
		if target.Name == "" && target.ObjectID == "" {
			continue
		}
		nameKey := strings.ToLower(target.Name)
		key := "id:" + target.ObjectID
		if target.ObjectID == "" {
			if resolvedNames[nameKey] {
				continue
			}
			key = "name:" + nameKey
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, target)
	}
	return out
}

func targetNames(targets []GroupTarget) []string {
	names := []string{}
	for _, target := range targets {
		names = append(names, target.Name)
	}
	return names
}

// dedupeNames drops blanks and case-insensitive duplicates, keeping first-seen order.
func dedupeNames(names []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}
