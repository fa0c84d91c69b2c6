package main

import (
	"bytes"
	"errors"
	"strings"
	"text/template"
)

type stepOutputs struct {
	User     *CreatedUser
	Mirrored MirroredGroups
	Groups   *GroupAssignmentResult
	Licenses *LicenseAssignmentResult
	Metadata *ProvisioningMetadata
}

type ticketNoteData struct {
	DisplayName      string
	UPN              string
	TempPassword     string
	GroupsAssigned   []string
	LicensesAssigned []string
	Steps            []ticketNoteStep
	Errors           []string
	Warnings         []string
}

type ticketNoteStep struct {
	Name   StepName
	Status StepStatus
}

var ticketNoteTemplate = template.Must(template.New("ticketNote").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`New user provisioned: {{.DisplayName}}
UPN: {{.UPN}}
{{if .TempPassword}}Temporary password: {{.TempPassword}} (change required at first sign-in)
{{end}}{{if .GroupsAssigned}}Groups assigned: {{join .GroupsAssigned ", "}}
{{end}}{{if .LicensesAssigned}}Licenses assigned: {{join .LicensesAssigned ", "}}
{{end}}
Step status:
{{range .Steps}}- {{.Name}}: {{.Status}}
{{end}}{{if .Errors}}
Errors:
{{range .Errors}}- {{.}}
{{end}}{{end}}{{if .Warnings}}
Warnings:
{{range .Warnings}}- {{.}}
{{end}}{{end}}`))

func formatTicketNote(req *ProvisioningRequest, outputs stepOutputs) (TicketNote, error) {
	if strings.TrimSpace(req.TicketID) == "" {
		return TicketNote{}, errors.New("no ticket id to attach the note to")
	}
	if outputs.User == nil {
		return TicketNote{}, errors.New("no created user to report")
	}

	data := ticketNoteData{
		DisplayName:  req.displayName(),
		UPN:          outputs.User.PrincipalName,
		TempPassword: outputs.User.TempPassword,
	}
	if outputs.Groups != nil {
		data.GroupsAssigned = outputs.Groups.GroupsAssigned
	}
	if outputs.Licenses != nil {
		data.LicensesAssigned = outputs.Licenses.LicensesAssigned
	}
	if outputs.Metadata != nil {
		for _, step := range trackedSteps {
			data.Steps = append(data.Steps, ticketNoteStep{Name: step, Status: outputs.Metadata.Status[step]})
		}
		data.Errors = outputs.Metadata.Errors
		data.Warnings = outputs.Metadata.Warnings
	}

	var buf bytes.Buffer
	if err := ticketNoteTemplate.Execute(&buf, data); err != nil {
		return TicketNote{}, err
	}
	return TicketNote{TicketID: req.TicketID, Message: buf.String()}, nil
}
