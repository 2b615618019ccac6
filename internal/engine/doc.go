// Package engine contains the ping loop and the economy simulation.
//
// ARCHITECTURAL RULE: only the Engine mutates EngineState. Systems are
// handed the state by the Engine while it holds its mutex, so a ping is
// always processed to completion before any user action is applied.
package engine
