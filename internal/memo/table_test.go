package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoadOrStoreFirstWriterWins(t *testing.T) {
	tab := NewTable[string, int]()
	if v, loaded := tab.LoadOrStore("d", 1); loaded || v != 1 {
		t.Fatalf("first store: v=%d loaded=%v", v, loaded)
	}
	if v, loaded := tab.LoadOrStore("d", 2); !loaded || v != 1 {
		t.Fatalf("second store must return the winner: v=%d loaded=%v", v, loaded)
	}
}

func TestDoComputesOncePerKey(t *testing.T) {
	tab := NewTable[string, string]()
	var calls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, _, err := tab.Do("unit/d", func() (string, error) {
				calls.Add(1)
				return "resolved", nil
			})
			if err != nil || v != "resolved" {
				t.Errorf("unexpected %q %v", v, err)
			}
		}()
	}
	close(start)
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("compute ran %d times", calls.Load())
	}
	st := tab.Stats()
	if st.Misses != 1 || st.Hits != 31 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDoDoesNotStoreErrors(t *testing.T) {
	tab := NewTable[string, int]()
	boom := errors.New("boom")
	if _, _, err := tab.Do("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if tab.Len() != 0 {
		t.Fatalf("failed compute must not be stored")
	}
	v, cached, err := tab.Do("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 || cached {
		t.Fatalf("retry: v=%d cached=%v err=%v", v, cached, err)
	}
	if _, cached, _ := tab.Do("k", nil); !cached {
		t.Fatalf("third call must hit")
	}
}
