package logmmse

import (
	"github.com/sirupsen/logrus"
)

// logger carries the standard fields of one Session operation.
type logger struct {
	fields logrus.Fields
}

func newLogger(function string) *logger {
	return &logger{
		fields: logrus.Fields{
			"function": function,
			"package":  "logmmse",
		},
	}
}

func (l *logger) withField(key string, value interface{}) *logger {
	l.fields[key] = value
	return l
}

func (l *logger) withFields(fields logrus.Fields) *logger {
	for k, v := range fields {
		l.fields[k] = v
	}
	return l
}

func (l *logger) withError(err error, operation string) *logger {
	l.fields["error"] = err.Error()
	l.fields["operation"] = operation
	return l
}

func (l *logger) debug(message string) {
	logrus.WithFields(l.fields).Debug(message)
}

func (l *logger) info(message string) {
	logrus.WithFields(l.fields).Info(message)
}

func (l *logger) warn(message string) {
	logrus.WithFields(l.fields).Warn(message)
}

func (l *logger) error(message string) {
	logrus.WithFields(l.fields).Error(message)
}

func debugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}
