package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	graphBaseURL     = "https://graph.microsoft.com/v1.0"
	graphTokenURLFmt = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope       = "https://graph.microsoft.com/.default"

	graphRequestTimeout    = 30 * time.Second
	graphRequestsPerSecond = 10
	graphBurst             = 20
)

// GraphClient talks to Microsoft Graph on behalf of one tenant.
type GraphClient struct {
	TenantID   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type GraphError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *GraphError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: graph returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: graph returned %d %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
}

func isGraphNotFound(err error) bool {
	var graphErr *GraphError
	return errors.As(err, &graphErr) && graphErr.StatusCode == http.StatusNotFound
}

func newGraphClient(tenantID, baseURL string, httpClient *http.Client) *GraphClient {
	return &GraphClient{
		TenantID:   tenantID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(graphRequestsPerSecond), graphBurst),
	}
}

// graphClientForTenant returns the cached client for a tenant, creating one backed by an
// app-only client credentials token source on first use.
func graphClientForTenant(tenantID string) (*GraphClient, error) {
	cacheKey := tenantID + CACHENAME_GRAPH_CLIENT
	if cached, found := cash.Get(cacheKey); found {
		if client, ok := cached.(*GraphClient); ok {
			return client, nil
		}
	}

	if passwords.GRAPH_CLIENT_ID == "" || passwords.GRAPH_CLIENT_SECRET == "" {
		return nil, errors.New("microsoft graph credentials are not configured")
	}

	conf := clientcredentials.Config{
		ClientID:     passwords.GRAPH_CLIENT_ID,
		ClientSecret: passwords.GRAPH_CLIENT_SECRET,
		TokenURL:     fmt.Sprintf(graphTokenURLFmt, url.PathEscape(tenantID)),
		Scopes:       []string{graphScope},
	}
	httpClient := conf.Client(context.Background())
	httpClient.Timeout = graphRequestTimeout

	client := newGraphClient(tenantID, graphBaseURL, httpClient)
	cash.Set(cacheKey, client, DEFAULT_CACHE_EXPIRATION)
	return client, nil
}

// do sends one Graph request. path is relative to the client's base URL unless it is an
// absolute @odata.nextLink.
func (g *GraphClient) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		b := new(bytes.Buffer)
		if err := json.NewEncoder(b).Encode(body); err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = b
	}

	urlStr := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		urlStr = g.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		ErrorLog.Println(op, " NewRequest err: ", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		ErrorLog.Println(op, " Do err: ", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeGraphError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		ErrorLog.Println(op, " NewDecoder err: ", err)
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func decodeGraphError(op string, resp *http.Response) error {
	graphErr := &GraphError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	errBody := GraphErrorResponseBody{}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Error.Code != "" {
		graphErr.Code = errBody.Error.Code
		graphErr.Message = errBody.Error.Message
	}
	if graphErr.Code == "Authorization_RequestDenied" {
		graphErr.Message = "the app registration no longer has the privileges required for this action, re-consent it for this tenant"
	}

	if resp.StatusCode != http.StatusNotFound {
		ErrorLog.Println("graph ", op, " ERROR response code: ", resp.StatusCode, " graph code: ", graphErr.Code, " msg: ", graphErr.Message)
	}
	return graphErr
}
