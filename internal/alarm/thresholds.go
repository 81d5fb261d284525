package alarm

// ThresholdSet holds the active alarm limits. A zero limit disables that
// channel. Replacement is atomic: Engine readers never observe a
// half-updated set.
type ThresholdSet struct {
	AccRMSMax   float64 `json:"acc_rms_max"`   // g
	VelPeakMax  float64 `json:"vel_peak_max"`  // mm/s
	DispPeakMax float64 `json:"disp_peak_max"` // µm
	TempMax     float64 `json:"temp_max"`      // °C, optional
}

// DefaultThresholds are conservative factory limits used until a baseline
// has been learned or manual values supplied.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		AccRMSMax:   2.0,
		VelPeakMax:  100.0,
		DispPeakMax: 500.0,
		TempMax:     60.0,
	}
}
