package ml

// Params are the min-max bounds of one axis of a training set.
// Degenerate marks a collapsed range (Max == Min).
type Params struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Degenerate bool    `json:"degenerate"`
}

// FitAndScale computes min/max over values and maps each into [0,1]
func FitAndScale(values []float64) ([]float64, Params) {
	scaled := make([]float64, len(values))
	if len(values) == 0 {
		return scaled, Params{}
	}

	p := Params{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		if v < p.Min {
			p.Min = v
		}
		if v > p.Max {
			p.Max = v
		}
	}
	if p.Max == p.Min {
		p.Degenerate = true
		return scaled, p
	}

	for i, v := range values {
		scaled[i] = Scale(v, p)
	}
	return scaled, p
}

// Scale maps v onto the basis of p. Values outside [Min,Max] land outside [0,1].
func Scale(v float64, p Params) float64 {
	if p.Degenerate {
		return 0
	}
	return (v - p.Min) / (p.Max - p.Min)
}

// InverseScale maps a scaled value back to original units
func InverseScale(s float64, p Params) float64 {
	if p.Degenerate {
		return p.Min
	}
	return s*(p.Max-p.Min) + p.Min
}
