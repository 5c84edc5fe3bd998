package models

import (
	"testing"
	"time"
)

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseIdle, PhaseChecking, true},
		{PhaseChecking, PhaseOnline, true},
		{PhaseChecking, PhaseOffline, true},
		{PhaseOffline, PhaseWaking, true},
		{PhaseWaking, PhaseOffline, true},
		{PhaseOnline, PhaseChecking, true},
		{PhaseIdle, PhaseOnline, false},
		{PhaseOnline, PhaseWaking, false},
		{PhaseWaking, PhaseOnline, false},
		{PhaseChecking, PhaseWaking, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestConnectivityStateCloneDetachesPointers(t *testing.T) {
	now := time.Now()
	msg := "Request timeout"
	s := ConnectivityState{LastChecked: &now, ErrorMessage: &msg}

	c := s.Clone()
	*c.ErrorMessage = "changed"
	*c.LastChecked = now.Add(time.Hour)

	if *s.ErrorMessage != "Request timeout" {
		t.Fatalf("clone shares error message pointer")
	}
	if !s.LastChecked.Equal(now) {
		t.Fatalf("clone shares last checked pointer")
	}
}
