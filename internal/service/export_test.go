package service

import "time"

// SetClock replaces the time source used for client timestamps.
func (s *ClientService) SetClock(now func() time.Time) { s.now = now }
