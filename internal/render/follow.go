package render

import (
	"context"

	"github.com/pv/algoviz-go/internal/playback"
)

// Follow передаёт в sink каждое новое состояние контроллера, пока проигрывание
// не дойдёт до конца или не будет отменён ctx. Первым кадром идёт текущее состояние.
func Follow(ctx context.Context, c *playback.Controller, sink Sink) error {
	if _, ok := c.Trace(); !ok {
		return playback.ErrNoTrace
	}
	updates := make(chan playback.Update, 16)
	done := make(chan struct{})
	defer close(done)
	cancel := c.Subscribe(func(upd playback.Update) {
		select {
		case updates <- upd:
		case <-done:
		case <-ctx.Done():
		}
	})
	defer cancel()

	show := func(upd playback.Update) error {
		frame := Frame{State: upd.State}
		if upd.Snapshot != nil {
			frame.Snapshot = *upd.Snapshot
		}
		return sink.Show(ctx, frame)
	}
	upd := c.Status()
	if err := show(upd); err != nil {
		return err
	}
	for upd.State.Mode != playback.ModeFinished {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd = <-updates:
			if err := show(upd); err != nil {
				return err
			}
		}
	}
	return nil
}
