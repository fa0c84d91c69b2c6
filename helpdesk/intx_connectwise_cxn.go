package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	cwAPIPath        = "/v4_6_release/apis/3.0"
	cwRequestTimeout = 30 * time.Second
)

// ConnectWiseClient posts to the ConnectWise Manage REST API using member API keys.
type ConnectWiseClient struct {
	baseURL    string
	companyID  string
	publicKey  string
	privateKey string
	clientID   string
	httpClient *http.Client
}

type ConnectWiseError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *ConnectWiseError) Error() string {
	return fmt.Sprintf("%s: connectwise returned %d %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
}

func newConnectWiseClient(siteURL, companyID, publicKey, privateKey, clientID string, httpClient *http.Client) *ConnectWiseClient {
	return &ConnectWiseClient{
		baseURL:    strings.TrimRight(siteURL, "/") + cwAPIPath,
		companyID:  companyID,
		publicKey:  publicKey,
		privateKey: privateKey,
		clientID:   clientID,
		httpClient: httpClient,
	}
}

// newConnectWiseClientFromPasswords returns nil when no ConnectWise site is configured.
func newConnectWiseClientFromPasswords() *ConnectWiseClient {
	if passwords.CW_SITE_URL == "" || passwords.CW_PUBLIC_KEY == "" {
		return nil
	}
	return newConnectWiseClient(
		passwords.CW_SITE_URL,
		passwords.CW_COMPANY_ID,
		passwords.CW_PUBLIC_KEY,
		passwords.CW_PRIVATE_KEY,
		passwords.CW_CLIENT_ID,
		&http.Client{Timeout: cwRequestTimeout},
	)
}

func (cw *ConnectWiseClient) authHeader() string {
	credentials := cw.companyID + "+" + cw.publicKey + ":" + cw.privateKey
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

func (cw *ConnectWiseClient) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b := new(bytes.Buffer)
		if err := json.NewEncoder(b).Encode(body); err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = b
	}

	req, err := http.NewRequestWithContext(ctx, method, cw.baseURL+path, reader)
	if err != nil {
		ErrorLog.Println(op, " NewRequest err: ", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", cw.authHeader())
	req.Header.Set("clientId", cw.clientID)

	resp, err := cw.httpClient.Do(req)
	if err != nil {
		ErrorLog.Println(op, " Do err: ", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		cwErr := &ConnectWiseError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		errBody := CWErrorResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Message != "" {
			cwErr.Code = errBody.Code
			cwErr.Message = errBody.Message
			for _, detail := range errBody.Errors {
				cwErr.Message += "; " + detail.Field + ": " + detail.Message
			}
		}
		ErrorLog.Println("connectwise ", op, " ERROR response code: ", resp.StatusCode, " msg: ", cwErr.Message)
		return cwErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		ErrorLog.Println(op, " NewDecoder err: ", err)
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
