package octokit

import "github.com/sirupsen/logrus"

// LogrusLogger adapts a logrus.FieldLogger to Logger.
type LogrusLogger struct {
	log logrus.FieldLogger
}

// NewLogrusLogger wraps log. A nil log uses the logrus standard logger.
func NewLogrusLogger(log logrus.FieldLogger) *LogrusLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &LogrusLogger{log: log}
}

// Debug logs at debug level.
func (l *LogrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Debug(msg)
}

// Info logs at info level.
func (l *LogrusLogger) Info(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Info(msg)
}

// Warn logs at warning level.
func (l *LogrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Warn(msg)
}

// Error logs at error level.
func (l *LogrusLogger) Error(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Error(msg)
}
