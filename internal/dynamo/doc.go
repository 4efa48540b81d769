// Package dynamo provides core primitives shared by the fluid simulation
// packages.
//
//   - Sentinel errors such as [ErrParameterBounds] and [ErrInvalidState]
//   - [SimulationError] for wrapping failures with step context
//   - [ParallelFor] for chunked per-particle work
//   - [VecIsFinite] for NaN/Inf detection on vectors
//
// # Thread Safety
//
// [ParallelFor] blocks until every chunk has returned. Callers must ensure
// chunks write to disjoint memory.
package dynamo
