package markforge

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire() (*Exporter, error)
	Release(*Exporter)
	Size() int
	Close() error
} = (*ExporterPool)(nil)

// stubPool returns a pool whose exporters are cheap structs counted by created.
func stubPool(n int, created *atomic.Int32) *ExporterPool {
	p := NewExporterPool(n)
	p.newFn = func(...Option) (*Exporter, error) {
		created.Add(1)
		return &Exporter{}, nil
	}
	return p
}

// ---------------------------------------------------------------------------
// TestResolvePoolSize - Sizing
// ---------------------------------------------------------------------------

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{name: "explicit takes priority", workers: 4, want: 4},
		{name: "explicit=1 for sequential", workers: 1, want: 1},
		{name: "zero uses auto calculation", workers: 0, want: min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize)},
		{name: "negative uses auto calculation", workers: -3, want: min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolvePoolSize(tt.workers); got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExporterPool - Lazy creation, reuse and close
// ---------------------------------------------------------------------------

func TestNewExporterPool_MinimumSize(t *testing.T) {
	t.Parallel()

	if got := NewExporterPool(0).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestExporterPool_LazyAndReuse(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	p := stubPool(2, &created)

	if created.Load() != 0 {
		t.Fatal("exporters created before first Acquire")
	}

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	p.Release(a)

	b, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("released exporter was not reused")
	}
	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}
	p.Release(b)
}

func TestExporterPool_BlocksAtCapacity(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	p := stubPool(1, &created)

	first, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}

	got := make(chan *Exporter, 1)
	go func() {
		exp, _ := p.Acquire()
		got <- exp
	}()

	select {
	case <-got:
		t.Fatal("Acquire() returned while pool was exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(first)
	select {
	case exp := <-got:
		if exp != first {
			t.Error("waiter did not receive the released exporter")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() did not unblock after Release()")
	}
	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}
}

func TestExporterPool_CreationFailureFreesSlot(t *testing.T) {
	t.Parallel()

	p := NewExporterPool(1)
	calls := 0
	p.newFn = func(...Option) (*Exporter, error) {
		calls++
		if calls == 1 {
			return nil, ErrStyleNotFound
		}
		return &Exporter{}, nil
	}

	if _, err := p.Acquire(); !errors.Is(err, ErrStyleNotFound) {
		t.Fatalf("Acquire() error = %v, want ErrStyleNotFound", err)
	}
	exp, err := p.Acquire()
	if err != nil || exp == nil {
		t.Fatalf("second Acquire() = (%v, %v), want exporter", exp, err)
	}
}

func TestExporterPool_ConcurrentUse(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	p := stubPool(3, &created)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exp, err := p.Acquire()
			if err != nil {
				t.Error(err)
				return
			}
			time.Sleep(time.Millisecond)
			p.Release(exp)
		}()
	}
	wg.Wait()

	if n := created.Load(); n > 3 {
		t.Errorf("created = %d, want at most 3", n)
	}
}

func TestExporterPool_Close(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	p := stubPool(2, &created)
	exp, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	mock := &mockPDF{}
	exp.pdf = mock

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !mock.closed {
		t.Error("Close() did not close exporter browsers")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Release after Close must not block or panic.
	p.Release(exp)
}
