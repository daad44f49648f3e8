package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sitetrack/tracker/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{api: api, method: method, endpoint: endpoint}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

func (r *httpTestRequest) Body(body io.Reader) *httpTestRequest {
	r.body = body
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		if res.StatusCode == http.StatusForbidden {
			return ErrForbidden
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Put(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "PUT", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) signup(fullName, email, password string) (loginInfo, error) {
	body := map[string]string{
		"full_name": fullName, "email": email, "password": password,
	}

	err := c.Post("/user/signup").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) userInfo() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/user/info").Do(&res)
	return res, err
}

func (c *client) profile() (services.ProfileInfo, error) {
	var res services.ProfileInfo
	err := c.Get("/user/profile").Do(&res)
	return res, err
}

func (c *client) updateProfile(fullName string) error {
	return c.Post("/user/profile").Json(map[string]string{"full_name": fullName}).Do(nil)
}

func (c *client) setCompany(companyId uuid.UUID, role *string) error {
	body := map[string]interface{}{"company_id": companyId}
	if role != nil {
		body["role"] = *role
	}
	return c.Put("/user/profile/company").Json(body).Do(nil)
}

func (c *client) listCompanies() ([]services.CompanyInfo, error) {
	var res []services.CompanyInfo
	err := c.Get("/company/list").Do(&res)
	return res, err
}

func (c *client) createCompany(name string) (uuid.UUID, error) {
	var res map[string]uuid.UUID
	err := c.Post("/company/create").Json(map[string]string{"name": name}).Do(&res)
	return res["company_id"], err
}

func (c *client) listRequests() ([]services.RequestInfo, error) {
	var res []services.RequestInfo
	err := c.Get("/request/list").Do(&res)
	return res, err
}

func (c *client) createRequest(body map[string]interface{}) (services.RequestInfo, error) {
	var res services.RequestInfo
	err := c.Post("/request/create").Json(body).Do(&res)
	return res, err
}

func (c *client) updateStatus(requestId uuid.UUID, status string) (services.RequestInfo, error) {
	var res services.RequestInfo
	err := c.Post(fmt.Sprintf("/request/%v/status", requestId)).Json(map[string]string{"status": status}).Do(&res)
	return res, err
}

func (c *client) updateRequest(requestId uuid.UUID, body map[string]interface{}) (services.RequestInfo, error) {
	var res services.RequestInfo
	err := c.Put(fmt.Sprintf("/request/%v", requestId)).Json(body).Do(&res)
	return res, err
}

func (c *client) stats() (services.RequestStats, error) {
	var res services.RequestStats
	err := c.Get("/request/stats").Do(&res)
	return res, err
}

func (c *client) exportCsv() (string, error) {
	req := httptest.NewRequest("GET", "/request/export", nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", c.authToken))
	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("export failed with status %d and res '%v'", res.StatusCode, w.Body.String())
	}

	return w.Body.String(), nil
}

func (c *client) uploadImage(requestId uuid.UUID, data io.Reader) error {
	return c.Post(fmt.Sprintf("/request/%v/image", requestId)).Body(data).Do(nil)
}

func (c *client) downloadImage(requestId uuid.UUID) ([]byte, error) {
	req := httptest.NewRequest("GET", fmt.Sprintf("/request/%v/image", requestId), nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", c.authToken))
	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", res.StatusCode)
	}

	return io.ReadAll(w.Body)
}
