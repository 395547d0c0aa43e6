package gc

import "testing"

func TestNewDefaults(t *testing.T) {
	a := New()
	if a.NextGC != DefaultNextGC {
		t.Errorf("NextGC = %d, want %d", a.NextGC, DefaultNextGC)
	}
	if a.GrowthFactor != DefaultGrowthFactor {
		t.Errorf("GrowthFactor = %d, want %d", a.GrowthFactor, DefaultGrowthFactor)
	}
}

func TestTrackBelowThreshold(t *testing.T) {
	a := New()
	should, err := a.Track(1024)
	if err != nil {
		t.Fatalf("Track returned unexpected error: %v", err)
	}
	if should {
		t.Errorf("Track should not request a collection below NextGC")
	}
	if a.BytesAllocated != 1024 {
		t.Errorf("BytesAllocated = %d, want 1024", a.BytesAllocated)
	}
}

func TestTrackCrossesThreshold(t *testing.T) {
	a := New()
	should, err := a.Track(DefaultNextGC + 1)
	if err != nil {
		t.Fatalf("Track returned unexpected error: %v", err)
	}
	if !should {
		t.Errorf("Track should request a collection once BytesAllocated crosses NextGC")
	}
}

func TestTrackNegativeIsAFree(t *testing.T) {
	a := New()
	a.Track(1000)
	a.Track(-400)
	if a.BytesAllocated != 600 {
		t.Errorf("BytesAllocated = %d, want 600", a.BytesAllocated)
	}
}

func TestStressGCAlwaysCollects(t *testing.T) {
	a := New()
	a.StressGC = true
	should, err := a.Track(1)
	if err != nil {
		t.Fatalf("Track returned unexpected error: %v", err)
	}
	if !should {
		t.Errorf("Track under StressGC should request a collection on every allocation")
	}
}

func TestMaxBytesReturnsOutOfMemory(t *testing.T) {
	a := New()
	a.MaxBytes = 100
	_, err := a.Track(200)
	if err == nil {
		t.Fatalf("Track exceeding MaxBytes should return an error")
	}
}

func TestAfterCollectRecomputesThreshold(t *testing.T) {
	a := New()
	a.BytesAllocated = DefaultNextGC * 3
	a.AfterCollect()
	want := a.BytesAllocated * DefaultGrowthFactor
	if a.NextGC != want {
		t.Errorf("NextGC after collect = %d, want %d", a.NextGC, want)
	}
}

func TestAfterCollectNeverGoesBelowDefault(t *testing.T) {
	a := New()
	a.BytesAllocated = 10
	a.AfterCollect()
	if a.NextGC != DefaultNextGC {
		t.Errorf("NextGC = %d, want the default floor %d", a.NextGC, DefaultNextGC)
	}
}
