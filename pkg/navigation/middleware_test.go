package navigation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/navroute/pkg/history"
)

func TestMiddlewareOrder(t *testing.T) {
	var calls []string
	record := func(name string) Middleware {
		return MiddlewareFunc(func(ctx context.Context, tr *Transition, next func() error) error {
			calls = append(calls, name+":before:"+string(tr.Mode))
			err := next()
			calls = append(calls, name+":after:"+tr.Result.RouteName())
			return err
		})
	}

	c, _ := newTestController(t, history.NewMemory("", "/"), WithMiddleware(record("outer"), record("inner")))
	c.Start(context.Background())

	want := []string{
		"outer:before:initial",
		"inner:before:initial",
		"inner:after:home",
		"outer:after:home",
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v", calls)
	}
}

func TestMiddlewareSeesFromAndTo(t *testing.T) {
	var got *Transition
	mw := MiddlewareFunc(func(ctx context.Context, tr *Transition, next func() error) error {
		err := next()
		got = tr
		return err
	})
	c, _ := newTestController(t, history.NewMemory("", "/"), WithMiddleware(mw))
	c.Start(context.Background())
	c.Push(context.Background(), "/experiment/a/")

	if got.From.RouteName() != "home" || got.To != "/experiment/a" || !got.Committed() {
		t.Errorf("transition = %+v", got)
	}
}

func TestMiddlewareSkippingNextDoesNotCommit(t *testing.T) {
	skip := false
	mw := MiddlewareFunc(func(ctx context.Context, tr *Transition, next func() error) error {
		if skip {
			return nil
		}
		return next()
	})
	hist := history.NewMemory("", "/")
	c, outlet := newTestController(t, hist, WithMiddleware(mw))
	c.Start(context.Background())
	mounted := outlet.count()

	skip = true
	s, err := c.Push(context.Background(), "/experiment/a")
	if err != nil {
		t.Fatal(err)
	}
	if s.RouteName() != "home" || len(hist.Entries()) != 1 || outlet.count() != mounted {
		t.Errorf("skipped transition had effects: %+v", s)
	}
}

func TestMiddlewareErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	mw := MiddlewareFunc(func(ctx context.Context, tr *Transition, next func() error) error {
		if err := next(); err != nil {
			return err
		}
		if tr.Mode == ModePush {
			return wantErr
		}
		return nil
	})
	c, _ := newTestController(t, history.NewMemory("", "/"), WithMiddleware(mw))
	c.Start(context.Background())

	if _, err := c.Push(context.Background(), "/experiment/a"); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
