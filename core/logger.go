package core

// Logger is implemented by every log sink (rollbar, console).
// args are free-form: errors, map[string]interface{} of fields, or the acting student id.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// StudentID tags a log entry with the acting student.
type StudentID string
