package common

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	StatusCode() int
	ResponseBody() []byte
	RememberBody()
	RememberedBody() []byte
}

// RegisterSteps registers background and assertion step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the service is healthy$`, steps.serviceIsHealthy)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^I remember the response body$`, steps.rememberBody)
	ctx.Step(`^the response body should match the remembered body$`, steps.bodyShouldMatchRemembered)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/health", nil); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, http.StatusOK)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, status int) error {
	if got := s.tc.StatusCode(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.ResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) rememberBody(ctx context.Context) error {
	s.tc.RememberBody()
	return nil
}

func (s *commonSteps) bodyShouldMatchRemembered(ctx context.Context) error {
	if !bytes.Equal(s.tc.ResponseBody(), s.tc.RememberedBody()) {
		return fmt.Errorf("response body %q differs from remembered %q", s.tc.ResponseBody(), s.tc.RememberedBody())
	}
	return nil
}
