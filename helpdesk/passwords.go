package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

type Passwords struct {
	SECURITY_KEY                        string `json:"security_key"`
	ADMIN_KEY                           string `json:"admin_key"`
	PROD_DB_PW                          string `json:"prod_db_pw"`
	LOCAL_DB_PW                         string `json:"local_db_pw"`
	GRAPH_CLIENT_ID                     string `json:"graph_client_id"`
	GRAPH_CLIENT_SECRET                 string `json:"graph_client_secret"`
	CW_SITE_URL                         string `json:"cw_site_url"`
	CW_COMPANY_ID                       string `json:"cw_company_id"`
	CW_PUBLIC_KEY                       string `json:"cw_public_key"`
	CW_PRIVATE_KEY                      string `json:"cw_private_key"`
	CW_CLIENT_ID                        string `json:"cw_client_id"`
	CLOUDRADIAL_BASE_URL                string `json:"cloudradial_base_url"`
	CLOUDRADIAL_PUBLIC_KEY              string `json:"cloudradial_public_key"`
	CLOUDRADIAL_PRIVATE_KEY             string `json:"cloudradial_private_key"`
	NO_REPLY_EMAILER_ADDRESS            string `json:"no_reply_emailer_address"`
	HELPDESK_NOTIFICATION_EMAIL_ADDRESS string `json:"helpdesk_notification_email_address"`
	SG_EMAILER_PASSWORD                 string `json:"sg_emailer_password"`
	REPORT_BUCKET                       string `json:"report_bucket"`
}

var passwords Passwords

func configDir() string {
	if env.ConfigDir != "" {
		return env.ConfigDir
	}
	if env.Production {
		return "/etc/helpdesk/config"
	}
	dir, _ := filepath.Abs("./helpdesk/config")
	return dir
}

func loadPasswords() {
	absPath := filepath.Join(configDir(), "passwords.jsonc")

	raw, err := os.ReadFile(absPath)
	if err != nil {
		ErrorLog.Println(err)
		panic("FAILED to open passwords file: " + err.Error())
	}

	loaded, err := parsePasswords(raw)
	if err != nil {
		ErrorLog.Println(err)
		panic("FAILED Unmarshal passwords file: " + err.Error())
	}
	passwords = loaded
}

// parsePasswords accepts JSON with comments and trailing commas.
func parsePasswords(raw []byte) (Passwords, error) {
	loaded := Passwords{}
	err := json.Unmarshal(jsonc.ToJSON(raw), &loaded)
	return loaded, err
}
