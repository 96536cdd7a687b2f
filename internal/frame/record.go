package frame

// Record is the consolidated view of one frame log row. It is a value type;
// its fields cannot change after extraction.
type Record struct {
	row     int
	values  [numFields]float64
	present uint32
}

func (r *Record) set(f Field, v float64) {
	r.values[f] = v
	r.present |= 1 << f
}

// Row returns the 1-based data row number the record was extracted from.
func (r Record) Row() int {
	return r.row
}

// Has reports whether the field was present in the schema.
func (r Record) Has(f Field) bool {
	return f >= 0 && f < numFields && r.present&(1<<f) != 0
}

// Get returns the field value and whether it is present.
func (r Record) Get(f Field) (float64, bool) {
	if !r.Has(f) {
		return 0, false
	}
	return r.values[f], true
}

// Value returns the field value, zero when absent.
func (r Record) Value(f Field) float64 {
	v, _ := r.Get(f)
	return v
}

// Dropped reports whether the frame was flagged as invalid data.
func (r Record) Dropped() bool {
	return r.Value(DroppedFlag) != 0
}

// FrameNumber returns the frame number logged by the pipeline, if any.
func (r Record) FrameNumber() (int64, bool) {
	v, ok := r.Get(FrameNumber)
	return int64(v), ok
}
