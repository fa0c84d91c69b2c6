package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const cloudRadialRequestTimeout = 30 * time.Second

type CloudRadialClient struct {
	baseURL    string
	publicKey  string
	privateKey string
	httpClient *http.Client
}

type CRTokenRequest struct {
	CompanyID int64  `json:"companyId"`
	Token     string `json:"token"`
	Value     string `json:"value"`
}

func newCloudRadialClient(baseURL, publicKey, privateKey string, httpClient *http.Client) *CloudRadialClient {
	return &CloudRadialClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		publicKey:  publicKey,
		privateKey: privateKey,
		httpClient: httpClient,
	}
}

func newCloudRadialClientFromPasswords() *CloudRadialClient {
	if passwords.CLOUDRADIAL_BASE_URL == "" || passwords.CLOUDRADIAL_PUBLIC_KEY == "" {
		return nil
	}
	return newCloudRadialClient(
		passwords.CLOUDRADIAL_BASE_URL,
		passwords.CLOUDRADIAL_PUBLIC_KEY,
		passwords.CLOUDRADIAL_PRIVATE_KEY,
		&http.Client{Timeout: cloudRadialRequestTimeout},
	)
}

func (cr *CloudRadialClient) setCompanyToken(ctx context.Context, companyID int64, token, value string) error {
	b := new(bytes.Buffer)
	if err := json.NewEncoder(b).Encode(CRTokenRequest{CompanyID: companyID, Token: token, Value: value}); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cr.baseURL+"/api/beta/token", b)
	if err != nil {
		ErrorLog.Println("setCompanyToken NewRequest err: ", err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cr.publicKey, cr.privateKey)

	resp, err := cr.httpClient.Do(req)
	if err != nil {
		ErrorLog.Println("setCompanyToken Do err: ", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		ErrorLog.Println("cloudradial token ", token, " err response: ", string(bodyBytes), " with code: ", resp.StatusCode)
		return fmt.Errorf("cloudradial rejected token %s with status %d", token, resp.StatusCode)
	}
	return nil
}
