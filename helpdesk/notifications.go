package main

import (
	"fmt"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type ProvisioningSummaryEmailBody struct {
	DisplayName string
	UPN         string
	TicketID    string
	TenantID    string
	Status      string
	Message     string
	Steps       []struct {
		Name   string
		Status string
	}
	Errors   []string
	Warnings []string
}

func buildProvisioningSummary(result DispatchResult) ProvisioningSummaryEmailBody {
	body := ProvisioningSummaryEmailBody{
		Status:  result.Response.Status,
		Message: result.Response.Message,
	}
	if result.Request != nil {
		body.DisplayName = result.Request.displayName()
		body.TicketID = result.Request.TicketID
		body.TenantID = result.Request.TenantID
		body.UPN = result.Request.AccountDetails.UserPrincipalName
	}
	if result.Response.UPN != nil {
		body.UPN = *result.Response.UPN
	}
	if meta := result.Response.Metadata; meta != nil {
		for _, step := range trackedSteps {
			body.Steps = append(body.Steps, struct {
				Name   string
				Status string
			}{string(step), string(meta.Status[step])})
		}
		body.Errors = meta.Errors
		body.Warnings = meta.Warnings
	}
	return body
}

// sendProvisioningSummaryEmail mails the helpdesk inbox about runs that need a human to look at them.
func sendProvisioningSummaryEmail(result DispatchResult) {
	if passwords.HELPDESK_NOTIFICATION_EMAIL_ADDRESS == "" || result.Response.Status == RESULT_SUCCESS {
		return
	}

	emailBody := buildProvisioningSummary(result)

	subject := fmt.Sprintf("User provisioning %s: %s (ticket %s)", emailBody.Status, emailBody.UPN, emailBody.TicketID)
	emailHeaderInfo := sgEmailFields{
		Subject: subject,
		From:    &sgmail.Email{Name: "Helpdesk Automation", Address: passwords.NO_REPLY_EMAILER_ADDRESS},
		To:      []*sgmail.Email{{Address: passwords.HELPDESK_NOTIFICATION_EMAIL_ADDRESS}},
	}

	err := sendTemplatedEmailSendGrid(emailHeaderInfo, PROVISIONING_SUMMARY_TEMPLATE, emailBody, "provisioning_summary")
	if err != nil {
		ErrorLog.Printf("emailing err: %v\n", err)
	} else {
		InfoLog.Printf("summary email sent successfully: %s\n", subject)
	}
}

type TokenSyncAlertEmailBody struct {
	Failures []struct {
		Tenant string
		Error  string
	}
}

func sendTokenSyncAlert(body TokenSyncAlertEmailBody) {
	if passwords.HELPDESK_NOTIFICATION_EMAIL_ADDRESS == "" || len(body.Failures) == 0 {
		return
	}

	emailHeaderInfo := sgEmailFields{
		Subject: fmt.Sprintf("CloudRadial token sync failed for %d tenant(s)", len(body.Failures)),
		From:    &sgmail.Email{Name: "Helpdesk Automation", Address: passwords.NO_REPLY_EMAILER_ADDRESS},
		To:      []*sgmail.Email{{Address: passwords.HELPDESK_NOTIFICATION_EMAIL_ADDRESS}},
	}

	if err := sendTemplatedEmailSendGrid(emailHeaderInfo, TOKEN_SYNC_ALERT_TEMPLATE, body, "token_sync_alert"); err != nil {
		ErrorLog.Printf("emailing err: %v\n", err)
	}
}
