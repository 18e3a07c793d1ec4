package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunInvokesEveryJobExactlyOnce(t *testing.T) {
	p := New(4)
	defer p.Close()

	const n = 10
	var counters [n]int32
	err := p.Run(n, func(i int) error {
		atomic.AddInt32(&counters[i], 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	for i, c := range counters {
		if c != 1 {
			t.Errorf("counter[%d] = %d, want 1", i, c)
		}
	}
}

func TestRunBatchesWhenJobsExceedWorkers(t *testing.T) {
	p := New(3)
	defer p.Close()

	const n = 10
	var seen int32
	err := p.Run(n, func(i int) error {
		atomic.AddInt32(&seen, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if seen != n {
		t.Errorf("seen = %d, want %d", seen, n)
	}
}

func TestRunSurfacesFirstError(t *testing.T) {
	p := New(2)
	defer p.Close()

	want := errors.New("boom")
	err := p.Run(5, func(i int) error {
		if i == 2 {
			return want
		}
		return nil
	})
	if !errors.Is(err, want) {
		t.Fatalf("Run error = %v, want %v", err, want)
	}
}

func TestRunClearsErrorsBetweenBatches(t *testing.T) {
	p := New(2)
	defer p.Close()

	boom := errors.New("boom")
	err := p.Run(6, func(i int) error {
		if i == 0 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}

	err = p.Run(6, func(i int) error {
		return nil
	})
	if err != nil {
		t.Fatalf("second Run returned error: %v, want nil", err)
	}
}

func TestRunZeroJobsIsNoop(t *testing.T) {
	p := New(2)
	defer p.Close()

	called := false
	if err := p.Run(0, func(i int) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if called {
		t.Error("delegate invoked for zero jobs")
	}
}

func TestNewAutoDetectsParallelism(t *testing.T) {
	p := New(0)
	defer p.Close()
	if p.Workers() <= 0 {
		t.Errorf("Workers() = %d, want > 0", p.Workers())
	}
}

func TestClosedIsIdempotent(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close()
}
