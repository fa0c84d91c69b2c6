package main

import (
	"bytes"
	"errors"
	"html/template"
	"path/filepath"

	sendgrid "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var templates *template.Template

type sgEmailFields struct {
	From    *sgmail.Email
	To      []*sgmail.Email
	Cc      []*sgmail.Email
	Bcc     []*sgmail.Email
	Subject string
}

const (
	PROVISIONING_SUMMARY_TEMPLATE = "provisioning_summary.html"
	TOKEN_SYNC_ALERT_TEMPLATE     = "token_sync_alert.html"
	TEST_EMAIL_TEMPLATE           = "test_template.html"
)

func templatesGlob() string {
	if env.TemplatesDir != "" {
		return filepath.Join(env.TemplatesDir, "*")
	}
	if env.Production {
		return "/etc/helpdesk/templates/*"
	}
	absPath, _ := filepath.Abs("./helpdesk/templates/*")
	return absPath
}

func initEmailTemplates() {
	templates = template.Must(template.ParseGlob(templatesGlob()))
}

func sendTemplatedEmailSendGrid(emailInfo sgEmailFields, templateToUse string, templateData interface{}, categories ...string) error {
	if templates == nil {
		return errors.New("email templates are not loaded")
	}
	temp := templates.Lookup(templateToUse)
	if temp == nil {
		return errors.New("no email template named " + templateToUse)
	}
	var tpl bytes.Buffer
	if err := temp.Execute(&tpl, templateData); err != nil {
		return errors.New("template execute err: " + err.Error())
	}
	htmlContent := tpl.String()

	m := sgmail.NewV3Mail()

	m.SetFrom(emailInfo.From)

	content := sgmail.NewContent("text/html", htmlContent)
	m.AddContent(content)

	personalization := sgmail.NewPersonalization()
	personalization.AddTos(emailInfo.To...)
	personalization.AddCCs(emailInfo.Cc...)
	personalization.AddBCCs(emailInfo.Bcc...)
	personalization.Subject = emailInfo.Subject

	m.AddPersonalizations(personalization)

	m.AddCategories(categories...)

	request := sendgrid.GetRequest(passwords.SG_EMAILER_PASSWORD, "/v3/mail/send", "https://api.sendgrid.com")
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(m)
	_, err := sendgrid.API(request)
	if err != nil {
		return errors.New("err SENDGRID API request: " + err.Error())
	}

	return nil
}

func sendTestEmail(to string) {
	emailHeaderInfo := sgEmailFields{
		Subject: "Helpdesk automation test email",
		From:    &sgmail.Email{Name: "Helpdesk Automation", Address: passwords.NO_REPLY_EMAILER_ADDRESS},
		To:      []*sgmail.Email{{Address: to}},
	}

	if err := sendTemplatedEmailSendGrid(emailHeaderInfo, TEST_EMAIL_TEMPLATE, nil, "test"); err != nil {
		ErrorLog.Println("sendTestEmail err: ", err)
		return
	}
	InfoLog.Println("test email sent to ", to)
}
