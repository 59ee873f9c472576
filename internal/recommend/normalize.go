package recommend

// Normalize maps raw scores onto [0,100] relative to the batch maximum.
// When the maximum is not positive every confidence is 0; negative scores
// clamp to 0.
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	top := raw[0]
	for _, v := range raw[1:] {
		if v > top {
			top = v
		}
	}
	if top <= 0 {
		return out
	}
	for i, v := range raw {
		if v > 0 {
			out[i] = v / top * 100
		}
	}
	return out
}
