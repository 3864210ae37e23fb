package logging

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ClassRelation records which class number a class log was assigned.
type ClassRelation struct {
	Number int
	Name   string
	Source string
}

// RunLogger collects the identity, inputs, and configuration of one dataset
// run, then emits a single structured zerolog event summarising it. The
// class relations can also be appended to the run description file kept
// next to the data.
type RunLogger struct {
	name      string
	runID     string
	startedAt time.Time

	inputs   map[string]string
	outputs  map[string]string
	features map[string]bool
	config   map[string]string
	classes  []ClassRelation
}

// NewRunLogger creates a RunLogger for the given command name
// (e.g. "make-dataset", "dataset-checker").
func NewRunLogger(name string) *RunLogger {
	return &RunLogger{
		name:      name,
		startedAt: time.Now(),
		inputs:    make(map[string]string),
		outputs:   make(map[string]string),
		features:  make(map[string]bool),
		config:    make(map[string]string),
	}
}

// RunID sets the identifier of this run.
func (r *RunLogger) RunID(id string) *RunLogger {
	r.runID = id
	return r
}

// Input registers a file or directory read by the run.
func (r *RunLogger) Input(label, path string) *RunLogger {
	r.inputs[label] = path
	return r
}

// Output registers a file written by the run.
func (r *RunLogger) Output(label, path string) *RunLogger {
	r.outputs[label] = path
	return r
}

// Feature registers a boolean option (e.g. "compressBackup", "sqlite").
func (r *RunLogger) Feature(name string, enabled bool) *RunLogger {
	r.features[name] = enabled
	return r
}

// Config registers a configuration key-value pair.
func (r *RunLogger) Config(key, value string) *RunLogger {
	r.config[key] = value
	return r
}

// Class registers a class relation.
func (r *RunLogger) Class(number int, name, source string) *RunLogger {
	r.classes = append(r.classes, ClassRelation{Number: number, Name: name, Source: source})
	return r
}

// Classes returns the registered class relations in registration order.
func (r *RunLogger) Classes() []ClassRelation {
	return append([]ClassRelation(nil), r.classes...)
}

// Log emits a single structured INFO log event with all collected information.
func (r *RunLogger) Log() {
	evt := log.Info()

	runDict := zerolog.Dict().
		Str("name", r.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv(LevelEnv)).
		Time("startedAt", r.startedAt)
	if r.runID != "" {
		runDict = runDict.Str("runId", r.runID)
	}
	if host, err := os.Hostname(); err == nil {
		runDict = runDict.Str("host", host)
	}
	evt = evt.Dict("run", runDict)

	if len(r.inputs) > 0 {
		evt = evt.Dict("inputs", dictFromMap(r.inputs))
	}
	if len(r.outputs) > 0 {
		evt = evt.Dict("outputs", dictFromMap(r.outputs))
	}

	if len(r.features) > 0 {
		d := zerolog.Dict()
		for k, v := range r.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(r.config) > 0 {
		evt = evt.Dict("config", dictFromMap(r.config))
	}

	if len(r.classes) > 0 {
		d := zerolog.Dict()
		for _, c := range r.classes {
			d = d.Int(c.Name, c.Number)
		}
		evt = evt.Dict("classes", d)
	}

	evt.Msg("Dataset run configured")
}

// Describe renders the class relations section of a run description.
func (r *RunLogger) Describe() string {
	var b strings.Builder
	b.WriteString("\n-- Class Relations --\n")
	if r.runID != "" {
		fmt.Fprintf(&b, "Run %s at %s\n", r.runID, r.startedAt.UTC().Format(time.RFC3339))
	}
	for _, c := range r.classes {
		fmt.Fprintf(&b, "Assigning class number %d to class %s\n", c.Number, c.Name)
	}
	return b.String()
}

// AppendDescription appends the class relations to the run description file
// at path, creating it if needed. Earlier runs are kept.
func (r *RunLogger) AppendDescription(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run description: %w", err)
	}
	if _, err := f.WriteString(r.Describe()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write run description: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close run description: %w", err)
	}

	for _, c := range r.classes {
		log.Info().
			Int("class", c.Number).
			Str("name", c.Name).
			Str("source", c.Source).
			Msg("Class relation recorded")
	}
	return nil
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict) with
// keys in sorted order.
func dictFromMap(m map[string]string) *zerolog.Event {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := zerolog.Dict()
	for _, k := range keys {
		d = d.Str(k, m[k])
	}
	return d
}
