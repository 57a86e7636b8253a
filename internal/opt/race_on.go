//go:build race

package opt

// Race_ reports whether the race detector is compiled in. Stress tests use
// it to scale down their iteration counts.
const Race_ = true
