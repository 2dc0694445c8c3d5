package logger

import "github.com/harrison/esmify/internal/models"

// Sink is the set of methods every logger in this package implements.
type Sink interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogFileResult(result models.FileResult)
	LogSummary(result models.RunResult)
}

// MultiLogger forwards every message to each of its sinks, in order.
type MultiLogger struct {
	sinks []Sink
}

// NewMultiLogger creates a MultiLogger. Nil sinks are dropped.
func NewMultiLogger(sinks ...Sink) *MultiLogger {
	m := &MultiLogger{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiLogger) LogTrace(message string) {
	for _, s := range m.sinks {
		s.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, s := range m.sinks {
		s.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, s := range m.sinks {
		s.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, s := range m.sinks {
		s.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, s := range m.sinks {
		s.LogError(message)
	}
}

func (m *MultiLogger) LogFileResult(result models.FileResult) {
	for _, s := range m.sinks {
		s.LogFileResult(result)
	}
}

func (m *MultiLogger) LogSummary(result models.RunResult) {
	for _, s := range m.sinks {
		s.LogSummary(result)
	}
}
