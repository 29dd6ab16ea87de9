package indicators

// seeded averages its first n inputs and from then on applies
//
//	v += alpha * (x - v)
//
// alpha = 2/(n+1) gives an EMA, alpha = 1/n gives Wilder's smoothing.
type seeded struct {
	n     int
	alpha float64
	seen  int
	v     float64
}

func newEMASmoother(n int) seeded {
	return seeded{n: n, alpha: 2 / float64(n+1)}
}

func newWilder(n int) seeded {
	return seeded{n: n, alpha: 1 / float64(n)}
}

func (s *seeded) add(x float64) {
	if s.seen < s.n {
		s.seen++
		s.v += (x - s.v) / float64(s.seen) // running mean
		return
	}
	s.v += s.alpha * (x - s.v)
}

func (s *seeded) ready() bool { return s.n > 0 && s.seen >= s.n }

func (s *seeded) value() float64 {
	if !s.ready() {
		return 0
	}
	return s.v
}

func (s *seeded) reset() {
	s.seen = 0
	s.v = 0
}
