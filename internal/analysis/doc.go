// Package analysis characterizes recorded metric series.
//
//   - [Summarize]: mean, spread, extremes and settling point of a series
//   - [PowerSpectrum] and [DominantPeriod]: oscillation of a sloshing fluid
//   - [Crossings]: interpolated upward threshold crossings
//   - [PhasePortrait2D]: one metric plotted against another
//
// A dam break that settles shows a decaying kinetic energy whose dominant
// period is the sloshing period of the container:
//
//	steps, ke := store.Series(records, "kinetic_energy")
//	period, ok := analysis.DominantPeriod(ke, float64(steps[1]-steps[0]))
package analysis
