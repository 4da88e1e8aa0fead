// Package logger provides the structured-logging label pattern used
// across the orchestrator: a label map carried per request and merged
// into every log entry it emits.
package logger

import "github.com/sirupsen/logrus"

// Context is a set of labels merged into every log entry for a single
// request or long-running operation (e.g. owner_id, study_id,
// client_id, trial_id).
type Context map[string]interface{}

// Fields converts a Context into logrus.Fields for use with
// logrus.WithFields.
func (c Context) Fields() logrus.Fields {
	f := make(logrus.Fields, len(c))
	for k, v := range c {
		f[k] = v
	}
	return f
}

// With returns a new Context with key set to value, leaving the
// receiver untouched.
func (c Context) With(key string, value interface{}) Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// Entry returns a logrus.Entry carrying this Context's fields.
func Entry(log *logrus.Logger, ctx Context) *logrus.Entry {
	return log.WithFields(ctx.Fields())
}
