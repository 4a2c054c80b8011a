package runner

import (
	"github.com/robfig/cron/v3"

	gperrors "github.com/vnykmshr/gopace/pkg/common/errors"
	"github.com/vnykmshr/gopace/pkg/common/validation"
)

// cronParser accepts the extended format with a seconds field plus
// descriptors such as "@hourly".
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewCron creates a runner paced by a cron expression instead of a fixed
// interval. The lifecycle, hook protocol, stop semantics and error policy
// are identical to an interval runner; only the wait computation differs:
// each cycle waits until the schedule's next activation. Unlike interval
// pacing, the first cycle waits for the next cron boundary.
//
// Supports the 6-field format with seconds and descriptors:
//
//	"*/5 * * * * *"  - every 5 seconds
//	"0 30 14 * * 1-5" - 2:30 PM on weekdays
//	"@hourly"         - every hour
func NewCron(cronExpr string, task Task) (Runner, error) {
	return NewCronWithConfig(cronExpr, Config{Task: task})
}

// NewCronWithConfig creates a cron-paced runner with custom configuration.
// The Interval field is ignored; the schedule alone paces the runner.
func NewCronWithConfig(cronExpr string, cfg Config) (Runner, error) {
	if err := validation.ValidateNotEmpty("runner", "cron", cronExpr); err != nil {
		return nil, err
	}

	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return nil, gperrors.NewOperationError("runner", "NewCron", err).
			WithContext("parsing cron expression " + cronExpr)
	}

	cfg.Interval = 0
	return newRunner(cfg, schedule)
}

// ValidateCronExpression validates a cron expression without building a runner.
func ValidateCronExpression(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	return err
}
