// Package fluid holds the data side of the SPH simulation: parameter sets,
// the structure-of-arrays particle store and the [Sph] body that ties a
// store to its sorting grid.
//
// Two length scales are in play. Positions live at world scale, the scale at
// which particles are rendered and collide with rigid bodies. Kernel
// evaluation, velocities and accelerations live at simulation scale, which
// is world scale multiplied by [GlobalParameters.SimulationScale].
//
//	fg := fluid.DefaultGlobalParameters()
//	f, _ := fluid.NewSph(&fg, volumeMin, volumeMax, 4096)
//	fluid.AddVolume(f, boxMin, boxMax, f.EmitterSpacing(&fg))
package fluid
