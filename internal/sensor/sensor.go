// Package sensor defines the immutable sensor descriptors agents carry and
// the scenario-local registry that assigns them ids.
package sensor

import "fmt"

// Sensor is an immutable sensing device descriptor.
type Sensor struct {
	ID       int
	Category string
	Accuracy float64
	Range    float64
}

func (s Sensor) String() string {
	return fmt.Sprintf("Sensor(%d, %s, acc=%.2f)", s.ID, s.Category, s.Accuracy)
}

// Adequate reports whether s satisfies a requirement of (category, minimum
// accuracy) — category must match exactly and accuracy must be at least the
// required value.
func (s Sensor) Adequate(requiredCategory string, requiredAccuracy float64) bool {
	return s.Category == requiredCategory && s.Accuracy >= requiredAccuracy
}

// Registry assigns ids to sensors within one scenario. Unlike a
// package-level registry shared across every simulation run, a Registry is
// owned by the scenario builder and discarded with it.
type Registry struct {
	next    int
	sensors []Sensor
}

// NewRegistry returns an empty, scenario-scoped sensor registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// New registers and returns a new sensor with the given category, accuracy,
// and range. The id is assigned locally within this registry.
func (r *Registry) New(category string, accuracy, rng float64) Sensor {
	s := Sensor{ID: r.next, Category: category, Accuracy: accuracy, Range: rng}
	r.next++
	r.sensors = append(r.sensors, s)
	return s
}

// All returns every sensor registered so far.
func (r *Registry) All() []Sensor {
	return append([]Sensor(nil), r.sensors...)
}
