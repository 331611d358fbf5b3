package logging

import (
	"go.uber.org/zap"
)

// Development selects the human-readable development logger
const Development = "development"

// NewLogger returns a development logger when environment is "development"
// and a JSON production logger otherwise.
func NewLogger(environment string) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if environment == Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

// Leveled adapts a sugared logger to the key-value logging interface used by
// go-retryablehttp.
type Leveled struct {
	*zap.SugaredLogger
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) { l.Errorw(msg, keysAndValues...) }
func (l Leveled) Warn(msg string, keysAndValues ...interface{})  { l.Warnw(msg, keysAndValues...) }
func (l Leveled) Info(msg string, keysAndValues ...interface{})  { l.Infow(msg, keysAndValues...) }
func (l Leveled) Debug(msg string, keysAndValues ...interface{}) { l.Debugw(msg, keysAndValues...) }
