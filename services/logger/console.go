package logsvc

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/trezcool/mentora/core"
)

// ConsoleLogger writes text logs only (DEV, TEST).
type ConsoleLogger struct {
	std *logrus.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(out io.Writer, debug bool) *ConsoleLogger {
	std := logrus.New()
	std.SetOutput(out)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		std.SetLevel(logrus.DebugLevel)
	}
	return &ConsoleLogger{std: std}
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) { entry(l.std, args).Debug(msg) }
func (l ConsoleLogger) Info(msg string, args ...interface{})  { entry(l.std, args).Info(msg) }
func (l ConsoleLogger) Warn(msg string, args ...interface{})  { entry(l.std, args).Warn(msg) }
func (l ConsoleLogger) Error(msg string, args ...interface{}) { entry(l.std, args).Error(msg) }
func (l ConsoleLogger) Fatal(msg string, args ...interface{}) { entry(l.std, args).Fatal(msg) }

// entry turns the free-form args into logrus fields.
func entry(std *logrus.Logger, args []interface{}) *logrus.Entry {
	fields := make(logrus.Fields, len(args))
	var extra int
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case core.StudentID:
			fields["student"] = string(v)
		case error:
			fields[logrus.ErrorKey] = fmt.Sprintf("%+v", v)
		case map[string]interface{}:
			for k, val := range v {
				fields[k] = val
			}
		default:
			extra++
			fields[fmt.Sprintf("arg%d", extra)] = v
		}
	}
	return std.WithFields(fields)
}
