package stats

import "testing"

func TestEmptySpecDisablesManager(t *testing.T) {
	m, err := NewManager("", func() Snapshot { return Snapshot{} })
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m != nil {
		t.Fatal("empty spec should return a nil manager")
	}

	// A nil manager must be safe to drive.
	m.Start()
	m.Stop()
}

func TestInvalidSpecRejected(t *testing.T) {
	if _, err := NewManager("not a cron spec", func() Snapshot { return Snapshot{} }); err == nil {
		t.Fatal("NewManager accepted an invalid cron spec")
	}
}

func TestManagerStartStop(t *testing.T) {
	m, err := NewManager("* * * * *", func() Snapshot {
		return Snapshot{CacheEntries: 1}
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Start()
	m.Stop()
}
