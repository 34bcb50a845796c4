package registration

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	POSTWithBasicAuth(path string, body interface{}, username, password string) error
	Email(raw string) string
	VerificationCode(email string) (string, error)
	AgeRegistration(email string, age time.Duration) error
}

// RegisterSteps registers registration and activation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	ctx.Step(`^I register with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^I activate "([^"]*)" with password "([^"]*)" and the emailed code$`, steps.activateWithEmailedCode)
	ctx.Step(`^I activate "([^"]*)" with password "([^"]*)" and a wrong code$`, steps.activateWithWrongCode)
	ctx.Step(`^I activate "([^"]*)" with password "([^"]*)" and code "([^"]*)"$`, steps.activateWithCode)
	ctx.Step(`^I activate without credentials using code "([^"]*)"$`, steps.activateWithoutCredentials)
	ctx.Step(`^the registration for "([^"]*)" is (\d+) seconds old$`, steps.ageRegistration)
}

type registrationSteps struct {
	tc TestContext
}

func (s *registrationSteps) email(raw string) string {
	return s.tc.Email(raw)
}

func (s *registrationSteps) register(ctx context.Context, email, password string) error {
	return s.tc.POST("/v1/register", map[string]interface{}{
		"email":    s.email(email),
		"password": password,
	})
}

func (s *registrationSteps) activateWithCode(ctx context.Context, email, password, code string) error {
	return s.tc.POSTWithBasicAuth("/v1/activate", map[string]interface{}{"code": code}, s.email(email), password)
}

func (s *registrationSteps) activateWithEmailedCode(ctx context.Context, email, password string) error {
	code, err := s.tc.VerificationCode(normalize(s.email(email)))
	if err != nil {
		return err
	}
	return s.activateWithCode(ctx, email, password, code)
}

func (s *registrationSteps) activateWithWrongCode(ctx context.Context, email, password string) error {
	code, err := s.tc.VerificationCode(normalize(s.email(email)))
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return fmt.Errorf("stored code %q is not numeric", code)
	}
	return s.activateWithCode(ctx, email, password, fmt.Sprintf("%04d", (n+1)%10000))
}

func (s *registrationSteps) activateWithoutCredentials(ctx context.Context, code string) error {
	return s.tc.POST("/v1/activate", map[string]interface{}{"code": code})
}

func (s *registrationSteps) ageRegistration(ctx context.Context, email string, seconds int) error {
	return s.tc.AgeRegistration(normalize(s.email(email)), time.Duration(seconds)*time.Second)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
