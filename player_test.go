package rodsynth

import "testing"

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	inst, err := New(48000, WithParams(engineParams(0.8)))
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	pl, err := NewPlayer(inst, "")
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.5)
	if got := pl.MasterVolume(); got != 0.5 {
		t.Fatalf("master volume = %v, want 0.5", got)
	}
	if got := inst.Engine().MasterGain(); got != 0.4 {
		t.Fatalf("engine gain = %v, want 0.4", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerStopBeforePlay(t *testing.T) {
	inst, err := New(48000)
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	pl, err := NewPlayer(inst, "oto")
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if pl.IsPlaying() {
		t.Fatal("player reports playing before Play")
	}
	if err := pl.Stop(); err != nil {
		t.Fatalf("Stop before Play: %v", err)
	}
	if _, err := NewPlayer(nil, ""); err == nil {
		t.Fatal("NewPlayer accepted a nil instrument")
	}
}
