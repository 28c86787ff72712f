package logmmse

// Stats is a diagnostic snapshot of a Session.
type Stats struct {
	Generation int64   // noise-floor updates since bootstrap
	Stable     bool    // a measured floor has been committed
	Hold       bool    // estimator frozen
	NFFT       int     // transform size
	HistoryLen int     // frames in the noise history
	MinLevel   float64 // recorded floor minimum (linear power)
	MaxLevel   float64 // recorded floor maximum (linear power)
}

// Stats returns the current diagnostics. A closed session reports zeros.
func (s *Session) Stats() Stats {
	if s.closed {
		return Stats{}
	}
	minLevel, maxLevel := s.floor.Levels()
	return Stats{
		Generation: s.floor.Generation(),
		Stable:     s.floor.Stable(),
		Hold:       s.hold,
		NFFT:       s.geom.NFFT,
		HistoryLen: s.history.Len(),
		MinLevel:   minLevel,
		MaxLevel:   maxLevel,
	}
}
