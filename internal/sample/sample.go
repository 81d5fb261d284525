// Package sample defines the decoded sensor reading and the bounded ring
// buffer shared between the acquisition loop and the analysis loop.
package sample

import "time"

// Sample is one full reading of the sensor: three-axis acceleration,
// vibration velocity, displacement and dominant frequency, plus chip
// temperature. Samples are immutable once pushed into a Buffer.
type Sample struct {
	Timestamp time.Time
	Acc       [3]float64 // g
	Vel       [3]float64 // mm/s
	Disp      [3]float64 // µm
	Freq      [3]float64 // Hz
	Temp      float64    // °C
}
