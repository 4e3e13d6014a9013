package concurrent

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelMapPreservesInputOrder(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	out, err := ParallelMap(context.Background(), items, func(v int) (string, error) {
		// Reverse the natural completion order so any reordering would show.
		time.Sleep(time.Duration(50-v) * time.Millisecond / 10)
		return strconv.Itoa(v), nil
	}, 8)
	if err != nil {
		t.Fatalf("parallel map: %v", err)
	}
	for i, s := range out {
		if s != strconv.Itoa(i) {
			t.Fatalf("result %d = %q, want %q", i, s, strconv.Itoa(i))
		}
	}
}

func TestParallelMapBoundsConcurrency(t *testing.T) {
	var running, peak int64
	var mu sync.Mutex

	items := make([]int, 20)
	_, err := ParallelMap(context.Background(), items, func(int) (struct{}, error) {
		n := atomic.AddInt64(&running, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&running, -1)
		return struct{}{}, nil
	}, 3)
	if err != nil {
		t.Fatalf("parallel map: %v", err)
	}
	if peak > 3 {
		t.Fatalf("observed %d concurrent tasks, want at most 3", peak)
	}
}

func TestParallelMapPartialFailureKeepsSiblingResults(t *testing.T) {
	items := []int{0, 1, 2, 3}
	boom := errors.New("boom")

	out, err := ParallelMap(context.Background(), items, func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v * 10, nil
	}, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if out[0] != 0 || out[1] != 10 || out[3] != 30 {
		t.Fatalf("sibling results clobbered: %v", out)
	}
}

func TestParallelMapEmptyInput(t *testing.T) {
	out, err := ParallelMap(context.Background(), nil, func(int) (int, error) { return 0, nil }, 3)
	if err != nil || out != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", out, err)
	}
}
