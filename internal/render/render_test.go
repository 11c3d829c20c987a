package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pv/algoviz-go/internal/generator"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/playback"
	"github.com/pv/algoviz-go/internal/trace"
)

func TestTextSinkHighlightsLine(t *testing.T) {
	l, err := listing.Default().Listing(listing.Bubble)
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	var buf bytes.Buffer
	sink := &TextSink{Writer: &buf, Listing: &l, NoColor: true}
	frame := Frame{
		State: playback.State{Algorithm: "bubble-sort", Index: 0, Length: 5, Mode: playback.ModePaused, Speed: 1},
		Snapshot: trace.Snapshot{
			Values:      []int{4, -2, 0},
			Marks:       map[int]trace.Role{0: trace.RoleComparing, 1: trace.RoleComparing},
			Line:        3,
			Description: "Compare 4 and -2",
		},
	}
	if err := sink.Show(context.Background(), frame); err != nil {
		t.Fatalf("Show: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"bubble-sort  step 1/5  [paused x1]",
		"  0 | " + strings.Repeat("█", barWidth) + " 4",
		"  1 | " + strings.Repeat("░", barWidth/2) + " -2",
		"  2 |  0",
		"Compare 4 and -2",
		">  3  " + l.Lines[2],
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "\n> ") != 1 {
		t.Fatalf("expected exactly one highlighted line:\n%s", out)
	}
}

func TestTextSinkRequiresWriter(t *testing.T) {
	if err := (&TextSink{}).Show(context.Background(), Frame{}); err == nil {
		t.Fatalf("expected error without writer")
	}
}

func TestTableListsEverySnapshot(t *testing.T) {
	reg := generator.NewRegistry(nil)
	tr, err := reg.Generate(listing.Bubble, []int{2, 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	l, _ := reg.Mapper().Listing(listing.Bubble)
	out := strings.ToLower(Table(tr, &l))
	for _, want := range []string{"description", "comparing: 0,1", "swapping: 0,1", "sorted: all", "total: 4 steps", "array is sorted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table lacks %q:\n%s", want, out)
		}
	}
}

type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *recordingSink) Show(_ context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func TestFollowUntilFinished(t *testing.T) {
	tr, _ := generator.NewRegistry(nil).Generate(listing.Insertion, []int{3, 1, 2})
	c := playback.New(nil, playback.WithBaseInterval(time.Millisecond))
	if err := c.Load(tr); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sink := &recordingSink{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- Follow(ctx, c, sink) }()
	// Подписка должна появиться до старта, иначе первые кадры уйдут мимо.
	time.Sleep(10 * time.Millisecond)
	_ = c.Play()
	if err := <-errCh; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	last := sink.frames[len(sink.frames)-1]
	if last.State.Mode != playback.ModeFinished || !last.Snapshot.Terminal {
		t.Fatalf("last frame = %+v", last)
	}
	if sink.frames[0].State.Index != 0 {
		t.Fatalf("first frame index = %d", sink.frames[0].State.Index)
	}
}

func TestFollowHonoursCancel(t *testing.T) {
	tr, _ := generator.NewRegistry(nil).Generate(listing.Quick, []int{3, 1, 2})
	c := playback.New(playback.NewManualScheduler())
	_ = c.Load(tr)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Follow(ctx, c, &recordingSink{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Follow = %v, want context.Canceled", err)
	}
	if err := Follow(context.Background(), playback.New(nil), &recordingSink{}); !errors.Is(err, playback.ErrNoTrace) {
		t.Fatalf("Follow without trace = %v", err)
	}
}
