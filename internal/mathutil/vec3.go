package mathutil

// Vec3 is a 3-component vector (value type, stack-allocated).
type Vec3 [3]float64

func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Extent returns the minimum and maximum of v·x over the unit cube [0,1]³.
func (v Vec3) Extent() (lo, hi float64) {
	for _, c := range v {
		if c < 0 {
			lo += c
		} else {
			hi += c
		}
	}
	return lo, hi
}

// Clamp limits x to [lo, hi]. NaN is returned unchanged.
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 limits x to [0, 1].
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}
