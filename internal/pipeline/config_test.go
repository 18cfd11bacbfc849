package pipeline

import (
	"testing"
	"time"
)

func TestInitDefaults(t *testing.T) {
	Init(Config{})

	if Cfg.EnrichDelay != 700*time.Millisecond {
		t.Errorf("EnrichDelay = %v, want 700ms", Cfg.EnrichDelay)
	}
	if Cfg.LookbackWindow != 90*24*time.Hour {
		t.Errorf("LookbackWindow = %v, want 90d", Cfg.LookbackWindow)
	}
	if got := Cfg.EnrichHostDelays["linkedin.com"]; got != 12*time.Second {
		t.Errorf("linkedin.com delay = %v, want 12s", got)
	}
}

func TestInitExplicitHostDelaysWin(t *testing.T) {
	Init(Config{EnrichHostDelays: map[string]time.Duration{"example.com": time.Second}})

	if got := Cfg.EnrichHostDelays["example.com"]; got != time.Second {
		t.Errorf("example.com delay = %v, want 1s", got)
	}
	if _, ok := Cfg.EnrichHostDelays["linkedin.com"]; ok {
		t.Error("default delay must not leak into an explicit override map")
	}
}
