package logger

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/charmbracelet/log"
)

// WatermillAdapter routes watermill logs through the service logger
type WatermillAdapter struct {
	logger *log.Logger
}

// NewWatermillAdapter wraps logger for use by watermill publishers
func NewWatermillAdapter(logger *log.Logger) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: logger.WithPrefix("watermill")}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(keyvals(fields), "err", err)...)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, keyvals(fields)...)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, keyvals(fields)...)
}

// Trace maps to debug; charm log has no trace level
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, keyvals(fields)...)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{logger: a.logger.With(keyvals(fields)...)}
}

func keyvals(fields watermill.LogFields) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
