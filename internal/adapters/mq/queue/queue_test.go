package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/creatorvc/scout/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func receive(t *testing.T, ch <-chan queue.Trigger) queue.Trigger {
	t.Helper()
	select {
	case trig, ok := <-ch:
		if !ok {
			t.Fatal("trigger channel closed unexpectedly")
		}
		return trig
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for trigger")
	}
	return queue.Trigger{}
}

func TestEnqueueCoalescing(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open trigger queue", t, func() {
		q := queue.NewCoalescingQueue()
		defer q.Close()

		Convey("When the same category is marked dirty repeatedly", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)

			Convey("Then only one trigger should be waiting", func() {
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("Then only one trigger should be delivered", func() {
				trig := receive(t, q.Dequeue(ctx))
				So(trig.Category, ShouldEqual, "tech")

				select {
				case extra := <-q.Dequeue(ctx):
					So(extra.Category, ShouldBeEmpty) // unreachable
				case <-time.After(50 * time.Millisecond):
				}
			})
		})

		Convey("When distinct categories are marked dirty", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			So(q.Enqueue(ctx, "beauty"), ShouldBeTrue)

			Convey("Then both should be waiting", func() {
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When a category re-dirties after its trigger was handed off", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			_ = receive(t, q.Dequeue(ctx))

			Convey("Then a fresh trigger should be accepted and delivered", func() {
				So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
				trig := receive(t, q.Dequeue(ctx))
				So(trig.Category, ShouldEqual, "tech")
			})
		})
	})
}

func TestEnqueueBounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity for two categories", t, func() {
		q := queue.NewCoalescingQueue(queue.WithCapacity(2))
		defer q.Close()

		Convey("When a third distinct category arrives", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			So(q.Enqueue(ctx, "beauty"), ShouldBeTrue)

			Convey("Then the overflow trigger should be dropped, not blocked", func() {
				So(q.Enqueue(ctx, "gaming"), ShouldBeFalse)
			})

			Convey("Then an already waiting category should still coalesce", func() {
				So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			})
		})
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue holding a pending trigger", t, func() {
		q := queue.NewCoalescingQueue()
		So(q.Enqueue(ctx, "tech"), ShouldBeTrue)

		Convey("When the queue closes", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then new triggers should be refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, "beauty"), ShouldBeFalse)
			})

			Convey("Then the pending trigger should still drain", func() {
				trig := receive(t, q.Dequeue(ctx))
				So(trig.Category, ShouldEqual, "tech")

				_, open := <-q.Dequeue(ctx)
				So(open, ShouldBeFalse)
			})

			Convey("Then closing again should report the sentinel", func() {
				So(q.Close(), ShouldWrap, queue.ErrClosed)
			})
		})
	})
}

func TestTriggerTimestamps(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with a fixed clock", t, func() {
		at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
		q := queue.NewCoalescingQueue(queue.WithClock(func() time.Time { return at }))
		defer q.Close()

		Convey("When a trigger is delivered", func() {
			So(q.Enqueue(ctx, "tech"), ShouldBeTrue)
			trig := receive(t, q.Dequeue(ctx))

			Convey("Then it should carry its enqueue time", func() {
				So(trig.EnqueuedAt, ShouldEqual, at)
			})
		})
	})
}
