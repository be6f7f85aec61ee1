// Package scheduler assigns observing intervals to targets on one night.
// AbsolutePriority targets reserve their declared windows first; regular
// targets are then placed into the remaining free capacity either in input
// order or by least slack, never overlapping each other, offline periods or
// frozen observations.
package scheduler
