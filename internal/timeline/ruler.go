package timeline

import "slices"

// Marker is a labelled instant drawn on the ruler.
type Marker struct {
	Time  float64 `json:"time"`
	Label string  `json:"label"`
}

// Ruler holds the time window shared by every overview node. Changing any
// bound calls the change hook, which the owning overview uses to schedule a
// refresh.
type Ruler struct {
	zero, start, end, current float64
	markers                   []Marker
	onChange                  func()
}

func (r *Ruler) ZeroTime() float64    { return r.zero }
func (r *Ruler) StartTime() float64   { return r.start }
func (r *Ruler) EndTime() float64     { return r.end }
func (r *Ruler) CurrentTime() float64 { return r.current }

func (r *Ruler) SetZeroTime(v float64)    { r.set(&r.zero, v) }
func (r *Ruler) SetStartTime(v float64)   { r.set(&r.start, v) }
func (r *Ruler) SetEndTime(v float64)     { r.set(&r.end, v) }
func (r *Ruler) SetCurrentTime(v float64) { r.set(&r.current, v) }

func (r *Ruler) set(field *float64, v float64) {
	if *field == v {
		return
	}
	*field = v
	r.changed()
}

func (r *Ruler) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// Percent maps t into the window as a percentage, unclamped.
func (r *Ruler) Percent(t float64) float64 {
	if r.end <= r.start {
		return 0
	}
	return (t - r.start) / (r.end - r.start) * 100
}

// AddMarker inserts m, keeping markers ordered by time.
func (r *Ruler) AddMarker(m Marker) {
	i, _ := slices.BinarySearchFunc(r.markers, m, func(e, target Marker) int {
		if e.Time > target.Time {
			return 1
		}
		return -1
	})
	r.markers = slices.Insert(r.markers, i, m)
	r.changed()
}

func (r *Ruler) Markers() []Marker {
	return r.markers
}

func (r *Ruler) ClearMarkers() {
	if len(r.markers) == 0 {
		return
	}
	r.markers = nil
	r.changed()
}

// Reset zeroes every bound and drops the markers.
func (r *Ruler) Reset() {
	r.zero, r.start, r.end, r.current = 0, 0, 0, 0
	r.markers = nil
	r.changed()
}
