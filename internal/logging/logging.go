// internal/logging/logging.go
package logging

import (
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const EnvironmentDevelopment = "development"

var trackingEnabled int32

// NewLogger returns a console logger for development and a JSON logger everywhere else.
func NewLogger(environment, service string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if environment == EnvironmentDevelopment {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to build logger")
	}

	return logger.With(
		zap.String("service", service),
		zap.String("environment", environment),
	), nil
}

// InitErrorTracking enables CaptureError. An empty dsn leaves it disabled.
func InitErrorTracking(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	if err := raven.SetDSN(dsn); err != nil {
		return errors.Wrap(err, "unable to set sentry dsn")
	}
	raven.SetEnvironment(environment)
	raven.SetRelease(release)

	atomic.StoreInt32(&trackingEnabled, 1)
	return nil
}

// CaptureError reports err to Sentry unless it is an expected platform error.
func CaptureError(err error, tags map[string]string) {
	if atomic.LoadInt32(&trackingEnabled) == 0 || IgnoreError(err) {
		return
	}
	raven.CaptureError(err, tags)
}

// IgnoreError reports errors caused by missing Discord permissions, which are not worth tracking.
func IgnoreError(err error) bool {
	if err == nil {
		return true
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions,
			discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeCannotSendMessagesToThisUser:
			return true
		}
	}
	return false
}
