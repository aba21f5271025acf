package input

// ShortPressed reports whether ev is a short-press release of k
// (spec.md §4.5).
func ShortPressed(ev Event, k Key) bool {
	return ev.Name == k && ev.Action == ActionShort
}

// LongPressed reports whether ev is a long-press release of k.
func LongPressed(ev Event, k Key) bool {
	return ev.Name == k && ev.Action == ActionLong
}

// Pressed reports whether ev is a short or long release of k.
func Pressed(ev Event, k Key) bool {
	return ShortPressed(ev, k) || LongPressed(ev, k)
}

const (
	accelFastWindowUS = 30_000
	accelMedWindowUS  = 50_000
)

// EncoderAccelerator tracks, per page, the previous encoder tick's
// sign and timestamp to compute the acceleration multiplier of
// spec.md §4.5: same-sign tick within 30ms => x5, within 50ms => x2,
// otherwise x1.
type EncoderAccelerator struct {
	havePrev  bool
	prevSign  int
	prevTSUS  int64
}

// Step consumes one encoder event (value is -1 or +1, tsUS its
// timestamp in microseconds) and returns the accelerated increment to
// apply.
func (a *EncoderAccelerator) Step(value int, tsUS int64) int {
	sign := 1
	if value < 0 {
		sign = -1
	}

	mult := 1

	if a.havePrev && a.prevSign == sign {
		delta := tsUS - a.prevTSUS
		if delta >= 0 {
			switch {
			case delta <= accelFastWindowUS:
				mult = 5
			case delta <= accelMedWindowUS:
				mult = 2
			}
		}
	}

	a.havePrev = true
	a.prevSign = sign
	a.prevTSUS = tsUS

	return value * mult
}

// Reset clears the accelerator's memory, used when a page is entered
// fresh so a stale prior turn never influences the first tick.
func (a *EncoderAccelerator) Reset() {
	a.havePrev = false
}
