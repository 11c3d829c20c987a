package api

import (
	"errors"
	"testing"
	"time"

	"github.com/pv/algoviz-go/internal/generator"
	"github.com/pv/algoviz-go/internal/input"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/playback"
	"github.com/pv/algoviz-go/internal/storage/memstore"
)

func newTestManager(t *testing.T) (*Manager, *playback.ManualScheduler) {
	t.Helper()
	sched := playback.NewManualScheduler()
	mgr := NewManager(nil, sched, nil, playback.WithBaseInterval(100*time.Millisecond))
	t.Cleanup(mgr.Close)
	return mgr, sched
}

func TestManagerCreateAndPlay(t *testing.T) {
	mgr, sched := newTestManager(t)
	sess, err := mgr.Create(Source{Algorithm: "quick", Input: "3,1,2"})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	got, err := mgr.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("get returned %v, %v", got, err)
	}
	if err := sess.Controller().Play(); err != nil {
		t.Fatalf("play returned error: %v", err)
	}
	sched.Advance(time.Second)
	st := sess.Info().State
	if st.Mode != playback.ModeFinished || st.Index != st.Length-1 {
		t.Fatalf("state after playback = %+v", st)
	}
}

func TestManagerValidation(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Create(Source{Algorithm: "bubble", Input: "1,,2"}); !errors.Is(err, input.ErrNotANumber) {
		t.Fatalf("expected ErrNotANumber, got %v", err)
	}
	if _, err := mgr.Create(Source{Algorithm: "shell", Input: "1,2"}); !errors.Is(err, listing.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
	if len(mgr.List()) != 0 {
		t.Fatalf("failed creates left sessions: %v", mgr.List())
	}

	sess, err := mgr.Create(Source{Algorithm: "merge", Input: "4,3,2,1"})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	_ = sess.Controller().Seek(3)
	if err := mgr.Load(sess.ID, Source{Algorithm: "merge", Input: "4;3"}); err == nil {
		t.Fatalf("expected load error")
	}
	if st := sess.Info().State; st.Index != 3 || st.Length < 4 {
		t.Fatalf("failed load changed state: %+v", st)
	}
	if err := mgr.Load(sess.ID, Source{Algorithm: "code", Source: "x\ny"}); err != nil {
		t.Fatalf("load code: %v", err)
	}
	if st := sess.Info().State; st.Algorithm != "code" || st.Index != 0 || st.Length != 3 {
		t.Fatalf("state after load = %+v", st)
	}
	if err := mgr.Load("missing", Source{Algorithm: "code"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerDeleteCancelsPlayback(t *testing.T) {
	mgr, sched := newTestManager(t)
	sess, _ := mgr.Create(Source{Algorithm: "bubble", Input: "5,4,3,2,1"})
	_ = sess.Controller().Play()
	if sched.Pending() != 1 {
		t.Fatalf("pending = %d", sched.Pending())
	}
	if err := mgr.Delete(sess.ID); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if sched.Pending() != 0 {
		t.Fatalf("pending = %d after delete", sched.Pending())
	}
	if err := sess.Controller().Next(); !errors.Is(err, playback.ErrClosed) {
		t.Fatalf("next after delete = %v", err)
	}
	if err := mgr.Delete(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	mgr, sched := newTestManager(t)
	a, _ := mgr.Create(Source{Algorithm: "insertion", Input: "3,2,1"})
	b, _ := mgr.Create(Source{Algorithm: "insertion", Input: "3,2,1"})
	_ = a.Controller().Play()
	sched.Advance(250 * time.Millisecond)
	if a.Info().State.Index != 2 || b.Info().State.Index != 0 {
		t.Fatalf("sessions interfere: a=%+v b=%+v", a.Info().State, b.Info().State)
	}
	list := mgr.List()
	if len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}
}

func TestManagerUsesSharedTraceStore(t *testing.T) {
	store := memstore.New(4)
	reg := generator.NewRegistry(nil, generator.WithStore(store), generator.WithObserver(ObserveTrace))
	mgr := NewManager(reg, playback.NewManualScheduler(), nil)
	defer mgr.Close()
	for i := 0; i < 3; i++ {
		if _, err := mgr.Create(Source{Algorithm: "bubble", Input: "2,1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if hits, misses := store.Stats(); hits != 2 || misses != 1 {
		t.Fatalf("store stats hits=%d misses=%d", hits, misses)
	}
}

func TestStreamedSessionSurvivesConcurrentCommands(t *testing.T) {
	mgr := NewManager(nil, playback.NewTimerScheduler(), NewStateStreamer(), playback.WithBaseInterval(50*time.Microsecond))
	t.Cleanup(mgr.Close)
	sess, err := mgr.Create(Source{Algorithm: "bubble", Input: "20,19,18,17,16,15,14,13,12,11,10,9,8,7,6,5,4,3,2,1"})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	ctrl := sess.Controller()

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 1000; i++ {
				switch (i + w) % 5 {
				case 0:
					_ = ctrl.Play()
				case 1:
					_ = ctrl.Prev()
				case 2:
					_ = ctrl.Next()
				case 3:
					_ = ctrl.Seek(i % 40)
				case 4:
					info := sess.Info()
					if info.Snapshot == nil {
						t.Errorf("session info without snapshot: %+v", info.State)
					}
				}
				if i%250 == 0 {
					_ = mgr.Load(sess.ID, Source{Algorithm: "insertion", Input: "5,4,3,2,1"})
				}
			}
		}(w)
	}
	deadline := time.After(10 * time.Second)
	for w := 0; w < 4; w++ {
		select {
		case <-done:
		case <-deadline:
			t.Fatalf("session commands blocked, state %+v", ctrl.State())
		}
	}
	if err := mgr.Delete(sess.ID); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
}
