package ports

import (
	"time"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// Logger is the structured logger every component receives.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value attached to a log event.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field            { return Field{Key: key, Value: value} }
func Int(key string, value int) Field            { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field        { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field      { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field          { return Field{Key: key, Value: value} }
func Duration(key string, v time.Duration) Field { return Field{Key: key, Value: v} }

// Err attaches err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Workflow tags an event with the workflow instance id.
func Workflow(id string) Field { return String("workflow", id) }

// Generation tags an event with a selection generation.
func Generation(gen uint64) Field { return Uint64("generation", gen) }

// DigestField tags an event with a package digest.
func DigestField(d domain.Digest) Field { return String("digest", d.String()) }
