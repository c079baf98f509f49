package main

import "sync"

// SynthStats is what the producer loop reports about itself.
type SynthStats struct {
	Periods     uint64
	Underruns   uint64
	LoadPercent float64
	Offset      uint32
}

type synthStatusStore struct {
	mu sync.RWMutex
	SynthStats
}

func (s *synthStatusStore) recordPeriod(offset uint32, underrun bool) {
	s.mu.Lock()
	s.Periods++
	if underrun {
		s.Underruns++
	}
	s.Offset = offset
	s.mu.Unlock()
}

func (s *synthStatusStore) setLoad(percent float64) {
	s.mu.Lock()
	s.LoadPercent = percent
	s.mu.Unlock()
}

func (s *synthStatusStore) snapshot() SynthStats {
	s.mu.RLock()
	snap := s.SynthStats
	s.mu.RUnlock()
	return snap
}
