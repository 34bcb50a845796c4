package e2e

import (
	"github.com/cucumber/godog"

	"beefirst/e2e/steps/common"
	"beefirst/e2e/steps/registration"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (health, generic assertions)
	common.RegisterSteps(ctx, tc)

	// Register registration and activation steps
	registration.RegisterSteps(ctx, tc)
}
