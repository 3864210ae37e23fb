// Package metrics records per-run counters of a dataset build as one line of
// Embedded Metric Format (EMF) JSON. The line can be shipped as-is to any log
// pipeline that extracts EMF metrics, or read back by scripts comparing runs.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Namespace is the metric namespace of every dataset tool.
const Namespace = "DatasetCreator"

// Standard metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

// metricDef holds the name and unit for a single metric.
type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// emfDirective is the _aws metadata block required by EMF.
type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

// cwMetric defines a metric namespace, dimensions, and metric definitions.
type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates dimensions, metrics, and properties for a single EMF flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per run.
type Recorder struct {
	namespace  string
	out        io.Writer
	now        func() time.Time
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]interface{}
	properties map[string]interface{}
}

// New creates a Recorder that flushes to out, tagged with the command that
// produced the run.
func New(out io.Writer, command string) *Recorder {
	r := &Recorder{
		namespace:  Namespace,
		out:        out,
		now:        time.Now,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]interface{}),
		properties: make(map[string]interface{}),
	}
	if command != "" {
		r.dimensions["Command"] = command
	}
	return r
}

// Dimension adds a dimension key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit.
// Use the Unit* constants (UnitMilliseconds, UnitCount, UnitBytes, UnitNone).
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric.
func (r *Recorder) Count(name string, n int) *Recorder {
	return r.Metric(name, float64(n), UnitCount)
}

// Duration records an elapsed time in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property adds a non-metric field to the EMF document.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush serializes the EMF document as a single JSON line.
// After flushing, the Recorder should not be reused.
func (r *Recorder) Flush() error {
	if len(r.metrics) == 0 {
		return nil // Nothing to emit
	}

	doc := make(map[string]interface{})

	metricDefs := make([]metricDef, 0, len(r.metrics))
	for _, m := range r.metrics {
		metricDefs = append(metricDefs, m)
	}
	sort.Slice(metricDefs, func(i, j int) bool { return metricDefs[i].Name < metricDefs[j].Name })

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc["_aws"] = emfDirective{
		Timestamp: r.now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    metricDefs,
		}},
	}

	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("emf: failed to marshal metrics: %w", err)
	}

	// EMF must be a single line
	if _, err := fmt.Fprintln(r.out, string(data)); err != nil {
		return fmt.Errorf("emf: failed to write metrics: %w", err)
	}
	return nil
}
