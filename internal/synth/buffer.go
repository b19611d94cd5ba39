package synth

// DepthBuffer holds one depth per output pixel as a flat row-major slice
// for cache locality.
type DepthBuffer struct {
	Width  int
	Height int
	Depth  []float64 // len = W*H
}

// Reset resizes the buffer to w×h, reusing its allocation when large
// enough, and fills every cell with sentinel.
func (db *DepthBuffer) Reset(w, h int, sentinel float64) {
	n := w * h
	if cap(db.Depth) < n {
		db.Depth = make([]float64, n)
	}
	db.Depth = db.Depth[:n]
	db.Width = w
	db.Height = h
	for i := range db.Depth {
		db.Depth[i] = sentinel
	}
}

// At returns the depth stored at (x, y).
func (db *DepthBuffer) At(x, y int) float64 {
	return db.Depth[y*db.Width+x]
}

// TestAndSet stores d at (x, y) and reports true when d is strictly
// greater than the stored depth. Equal depths keep the earlier writer.
func (db *DepthBuffer) TestAndSet(x, y int, d float64) bool {
	i := y*db.Width + x
	if db.Depth[i] < d {
		db.Depth[i] = d
		return true
	}
	return false
}
