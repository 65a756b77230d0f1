// Package logging wires the process-wide zap logger. Everything else logs
// through zap.S() / zap.L() after Init has run; tests get a no-op logger by
// default, which is what zap ships out of the box.
package logging

import (
	"go.uber.org/zap"
)

func Init(development bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
