package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// TestContext carries the HTTP client, the last response and the per-scenario
// state shared by every step package.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client
	DB         *sql.DB

	runID        string
	lastStatus   int
	lastBody     []byte
	rememberBody []byte
}

// NewTestContext connects to the running service at baseURL and to its
// database at databaseURL.
func NewTestContext(baseURL, databaseURL string) (*TestContext, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		DB:         db,
	}, nil
}

// Reset clears per-scenario state. Each scenario gets a fresh run id so that
// emails never collide across runs against the same database.
func (tc *TestContext) Reset() {
	tc.runID = uuid.NewString()[:8]
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.rememberBody = nil
}

// Email substitutes the scenario run id for "{run}" in a feature email.
func (tc *TestContext) Email(raw string) string {
	return strings.ReplaceAll(raw, "{run}", tc.runID)
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body, nil)
}

func (tc *TestContext) POSTWithBasicAuth(path string, body interface{}, username, password string) error {
	return tc.do(http.MethodPost, path, body, func(req *http.Request) {
		req.SetBasicAuth(username, password)
	})
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, func(req *http.Request) {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	})
}

func (tc *TestContext) do(method, path string, body interface{}, decorate func(*http.Request)) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if decorate != nil {
		decorate(req)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) StatusCode() int { return tc.lastStatus }

func (tc *TestContext) ResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) RememberBody() { tc.rememberBody = tc.lastBody }

func (tc *TestContext) RememberedBody() []byte { return tc.rememberBody }

// GetResponseField decodes the last response as a JSON object and returns field.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(tc.lastBody, &payload); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response %s", field, tc.lastBody)
	}
	return v, nil
}

// VerificationCode reads the code the service issued for email. The default
// sink only logs it, so the suite reads it back from the registration table.
func (tc *TestContext) VerificationCode(email string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var code string
	err := tc.DB.QueryRowContext(ctx,
		`SELECT verification_code FROM registrations WHERE email = $1`, email).Scan(&code)
	if err != nil {
		return "", fmt.Errorf("read verification code for %s: %w", email, err)
	}
	return code, nil
}

// AgeRegistration moves the claim time of email into the past.
func (tc *TestContext) AgeRegistration(email string, age time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := tc.DB.ExecContext(ctx,
		`UPDATE registrations SET created_at = NOW() - make_interval(secs => $2) WHERE email = $1`,
		email, age.Seconds())
	return err
}
