package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// StatusError is returned for any non 200 response so that callers can branch
// on the backend's status code.
type StatusError struct {
	Code    int
	Content string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request returned status %d: %s", e.Code, e.Content)
}

type httpRequest struct {
	method   string
	baseUrl  string
	endpoint string

	headers     map[string]string
	queryParams map[string]string

	json interface{}
	body io.Reader

	login *[2]string
}

func get(baseUrl, endpoint string) *httpRequest {
	return &httpRequest{method: "GET", baseUrl: baseUrl, endpoint: endpoint}
}

func post(baseUrl, endpoint string) *httpRequest {
	return &httpRequest{method: "POST", baseUrl: baseUrl, endpoint: endpoint}
}

func put(baseUrl, endpoint string) *httpRequest {
	return &httpRequest{method: "PUT", baseUrl: baseUrl, endpoint: endpoint}
}

func (r *httpRequest) Header(key, value string) *httpRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpRequest) Login(email, password string) *httpRequest {
	r.login = &[2]string{email, password}
	return r
}

func (r *httpRequest) Auth(token string) *httpRequest {
	return r.Header("Authorization", "Bearer "+token)
}

func (r *httpRequest) Json(data interface{}) *httpRequest {
	r.json = data
	return r
}

func (r *httpRequest) Body(contentType string, body io.Reader) *httpRequest {
	r.body = body
	return r.Header("Content-Type", contentType)
}

func (r *httpRequest) Param(key, value string) *httpRequest {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

func (r *httpRequest) Process(ctx context.Context, client *http.Client) error {
	return r.Do(ctx, client, nil)
}

// Do sends the request and decodes the json response into result, which may be
// nil if the response body is not needed.
func (r *httpRequest) Do(ctx context.Context, client *http.Client, result interface{}) error {
	fullUrl, err := url.JoinPath(r.baseUrl, r.endpoint)
	if err != nil {
		return fmt.Errorf("error building url for endpoint %v: %w", r.endpoint, err)
	}

	body := r.body
	if r.json != nil {
		content, err := json.Marshal(r.json)
		if err != nil {
			return fmt.Errorf("error serializing request body: %w", err)
		}
		body = bytes.NewReader(content)
		r.Header("Content-Type", "application/json")
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullUrl, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	for key, value := range r.headers {
		req.Header.Set(key, value)
	}

	if r.login != nil {
		req.SetBasicAuth(r.login[0], r.login[1])
	}

	if len(r.queryParams) > 0 {
		query := req.URL.Query()
		for key, value := range r.queryParams {
			query.Add(key, value)
		}
		req.URL.RawQuery = query.Encode()
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request to endpoint %v: %w", r.endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		content, _ := io.ReadAll(res.Body)
		return &StatusError{Code: res.StatusCode, Content: string(content)}
	}

	if result != nil {
		if err := json.NewDecoder(res.Body).Decode(result); err != nil {
			return fmt.Errorf("error parsing response from endpoint %v: %w", r.endpoint, err)
		}
	}

	return nil
}
