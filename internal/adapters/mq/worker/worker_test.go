package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/creatorvc/scout/internal/adapters/mq/queue"
	"github.com/creatorvc/scout/internal/adapters/mq/worker"
	"github.com/creatorvc/scout/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// recordingRecomputer captures the categories it was asked to rebuild.
type recordingRecomputer struct {
	mu         sync.Mutex
	categories []string
	err        error
	block      chan struct{}
	seen       chan string
}

func newRecordingRecomputer() *recordingRecomputer {
	return &recordingRecomputer{seen: make(chan string, 64)}
}

func (r *recordingRecomputer) Recompute(ctx context.Context, category string) error {
	if block := r.gate(); block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.categories = append(r.categories, category)
	err := r.err
	r.mu.Unlock()
	r.seen <- category
	return err
}

func (r *recordingRecomputer) gate() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.block
}

func (r *recordingRecomputer) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recordingRecomputer) setGate(block chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.block = block
}

func (r *recordingRecomputer) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.categories))
	copy(out, r.categories)
	return out
}

func awaitCategory(t *testing.T, r *recordingRecomputer, want string) {
	t.Helper()
	select {
	case got := <-r.seen:
		if got != want {
			t.Fatalf("recomputed %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q recompute", want)
	}
}

func TestWorkerProcessesTriggers(t *testing.T) {
	Convey("Given a running worker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewCoalescingQueue()
		defer q.Close()
		rec := newRecordingRecomputer()
		w := worker.NewRecomputeWorker(q, rec, worker.WithName("test-worker"))
		go w.Run(ctx)

		Convey("When a trigger is enqueued", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)

			Convey("Then the category should be recomputed", func() {
				awaitCategory(t, rec, "tech")
				So(rec.all(), ShouldResemble, []string{"tech"})
			})
		})

		Convey("When recomputation fails", func() {
			rec.setErr(errors.New("store unavailable"))
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			awaitCategory(t, rec, "tech")

			Convey("Then the worker should keep consuming triggers", func() {
				rec.setErr(nil)
				So(q.Enqueue(ctx, "beauty"), ShouldBeTrue)
				awaitCategory(t, rec, "beauty")
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	Convey("Given a worker mid-run", t, func() {
		ctx := context.Background()
		q := queue.NewCoalescingQueue()
		defer q.Close()
		rec := newRecordingRecomputer()
		w := worker.NewRecomputeWorker(q, rec)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go w.Run(runCtx)

		Convey("When shutdown is requested", func() {
			err := w.Shutdown(ctx)

			Convey("Then it should stop cleanly", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestWorkerBatchTimeout(t *testing.T) {
	Convey("Given a worker with a very short batch timeout", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewCoalescingQueue()
		defer q.Close()

		rec := newRecordingRecomputer()
		rec.setGate(make(chan struct{})) // released late; recompute must rely on ctx
		w := worker.NewRecomputeWorker(q, rec, worker.WithBatchTimeout(20*time.Millisecond))
		go w.Run(ctx)

		Convey("When a recomputation exceeds the timeout", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)

			Convey("Then the worker should move on to the next trigger", func() {
				time.Sleep(50 * time.Millisecond)
				release := rec.gate()
				rec.setGate(nil)
				So(q.Enqueue(ctx, "beauty"), ShouldBeTrue)
				awaitCategory(t, rec, "beauty")
				close(release)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers sharing one queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewCoalescingQueue()
		defer q.Close()
		rec := newRecordingRecomputer()
		pool := worker.NewPool(4, q, rec)
		go pool.Run(ctx)

		Convey("When several categories trigger", func() {
			for _, cat := range []string{"tech", "beauty", "gaming"} {
				So(q.Enqueue(ctx, cat), ShouldBeTrue)
			}

			Convey("Then each should be recomputed exactly once", func() {
				seen := map[string]int{}
				for i := 0; i < 3; i++ {
					select {
					case cat := <-rec.seen:
						seen[cat]++
					case <-time.After(time.Second):
						t.Fatal("timed out waiting for recomputes")
					}
				}
				So(seen, ShouldResemble, map[string]int{"tech": 1, "beauty": 1, "gaming": 1})
			})
		})

		Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			Convey("Then every worker should stop", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
