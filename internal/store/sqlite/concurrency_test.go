package sqlite

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sheettrack/sheettrack/internal/schema"
)

// TestConcurrentUsers simulates several users marking questions at once
// while reading their own progress back.
func TestConcurrentUsers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency test in short mode")
	}

	st := openTestStore(t)
	seed(t, st)

	const (
		numUsers      = 6
		writesPerUser = 10
	)
	questions := []string{"q1", "q2", "q3"}
	statuses := schema.AllStatuses

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		durations []time.Duration
	)
	errs := make(chan error, numUsers)

	for i := 0; i < numUsers; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			ctx := context.Background()

			local := make([]time.Duration, 0, writesPerUser)
			for j := 0; j < writesPerUser; j++ {
				rec := newRecord(user, questions[j%len(questions)], statuses[j%len(statuses)])

				start := time.Now()
				if err := st.UpsertStatus(ctx, rec); err != nil {
					errs <- fmt.Errorf("%s write %d: %w", user, j, err)
					return
				}
				local = append(local, time.Since(start))

				if _, err := st.ListStatuses(ctx, user); err != nil {
					errs <- fmt.Errorf("%s read %d: %w", user, j, err)
					return
				}
			}

			mu.Lock()
			durations = append(durations, local...)
			mu.Unlock()
		}(fmt.Sprintf("user-%d", i))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if t.Failed() {
		return
	}

	counts, err := st.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if want := numUsers * len(questions); counts.Statuses != want {
		t.Errorf("Statuses = %d, want %d (one row per user and question)", counts.Statuses, want)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	t.Logf("%d writes: p50=%v p95=%v max=%v",
		len(durations),
		durations[len(durations)/2],
		durations[len(durations)*95/100],
		durations[len(durations)-1])
}
