package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Console writes verification codes to the log. Development only.
type Console struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{logger: logger}
}

func (c *Console) Send(ctx context.Context, email, code string) error {
	c.logger.InfoContext(ctx, fmt.Sprintf("[VERIFICATION] Email: %s Code: %s", email, code))
	return nil
}
