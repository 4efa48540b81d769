// Package metrics provides per-step observations of a fluid world: energy,
// density statistics, speed, containment and contact load. Every metric
// implements sim.Metric.
package metrics
