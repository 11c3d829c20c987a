// Package playback проигрывает трассу во времени: автопроигрывание, пауза,
// шаги в обе стороны, переход к произвольному шагу и смена скорости.
package playback

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/pv/algoviz-go/internal/trace"
)

// DefaultBaseInterval: задержка между шагами при скорости 1.
const DefaultBaseInterval = time.Second

var (
	ErrInvalidSpeed = errors.New("playback: speed must be a positive finite number")
	ErrEmptyTrace   = errors.New("playback: trace has no snapshots")
	ErrNoTrace      = errors.New("playback: no trace loaded")
	ErrClosed       = errors.New("playback: controller closed")
)

// Mode: режим проигрывания.
type Mode int

const (
	ModeIdle Mode = iota
	ModePlaying
	ModePaused
	ModeFinished
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePlaying:
		return "playing"
	case ModePaused:
		return "paused"
	case ModeFinished:
		return "finished"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	for candidate := ModeIdle; candidate <= ModeFinished; candidate++ {
		if candidate.String() == string(text) {
			*m = candidate
			return nil
		}
	}
	return fmt.Errorf("playback: unknown mode %q", text)
}

// State: наблюдаемое состояние контроллера.
type State struct {
	Algorithm string  `json:"algorithm"`
	Index     int     `json:"index"`
	Length    int     `json:"length"`
	Mode      Mode    `json:"mode"`
	Speed     float64 `json:"speed"`
}

// Option настраивает Controller.
type Option func(*Controller)

// WithBaseInterval задаёт задержку между шагами при скорости 1.
func WithBaseInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.base = d
		}
	}
}

// WithSpeed задаёт начальный множитель скорости. Некорректные значения игнорируются.
func WithSpeed(m float64) Option {
	return func(c *Controller) {
		if validSpeed(m) {
			c.speed = m
		}
	}
}

// WithLogger включает журналирование переходов.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Update: состояние и снимок текущего шага, снятые под одной блокировкой.
// Snapshot равен nil, пока трасса не загружена.
type Update struct {
	State    State
	Snapshot *trace.Snapshot
}

type notification struct {
	subs []func(Update)
	upd  Update
}

// Controller: конечный автомат проигрывания одной трассы.
// Коллбеки планировщика и вызовы API сериализуются через mu.
// Наблюдатели получают Update строго в порядке изменений; во время их вызова
// блокировки контроллера не удерживаются, поэтому из наблюдателя можно
// вызывать любые методы. Оповещение может быть доставлено уже после
// возврата из команды, если рассылку в этот момент ведёт другая горутина.
type Controller struct {
	sched Scheduler
	base  time.Duration
	log   *log.Logger

	mu      sync.Mutex
	tr      trace.Trace
	loaded  bool
	index   int
	mode    Mode
	speed   float64
	pending Handle
	gen     uint64
	closed  bool
	subs    map[int]func(Update)
	nextSub int

	queue       []notification
	dispatching bool
}

// New создаёт контроллер без трассы. При sched == nil используются реальные таймеры.
func New(sched Scheduler, opts ...Option) *Controller {
	if sched == nil {
		sched = NewTimerScheduler()
	}
	c := &Controller{
		sched: sched,
		base:  DefaultBaseInterval,
		speed: 1,
		subs:  map[int]func(Update){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load заменяет трассу: отложенный шаг отменяется, позиция и режим сбрасываются.
// Скорость сохраняется.
func (c *Controller) Load(tr trace.Trace) error {
	if tr.Len() == 0 {
		return ErrEmptyTrace
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancelPending()
	c.tr = tr
	c.loaded = true
	c.index = 0
	c.mode = ModeIdle
	if tr.Len() == 1 {
		c.mode = ModeFinished
	}
	c.logf("load %s: %d snapshots, mode %s", tr.Algorithm(), tr.Len(), c.mode)
	c.commit()
	return nil
}

// Play запускает автопроигрывание из idle или paused.
func (c *Controller) Play() error {
	return c.do(func() {
		if c.mode != ModeIdle && c.mode != ModePaused {
			return
		}
		c.mode = ModePlaying
		c.schedule()
	})
}

// Pause останавливает автопроигрывание на текущем шаге.
func (c *Controller) Pause() error {
	return c.do(func() {
		if c.mode != ModePlaying {
			return
		}
		c.cancelPending()
		c.mode = ModePaused
	})
}

// Next делает шаг вперёд. В режиме finished ничего не делает.
func (c *Controller) Next() error {
	return c.do(func() {
		if c.mode == ModeFinished {
			return
		}
		c.stepForward()
		if c.mode == ModePlaying {
			c.schedule()
		}
	})
}

// Prev делает шаг назад. Из finished контроллер переходит в paused,
// кроме трассы из одного снимка, где отступать некуда.
func (c *Controller) Prev() error {
	return c.do(func() {
		if c.index == 0 {
			return
		}
		c.index--
		if c.mode == ModeFinished {
			c.mode = ModePaused
		}
		if c.mode == ModePlaying {
			c.schedule()
		}
	})
}

// Seek переходит к шагу i, ограниченному границами трассы.
func (c *Controller) Seek(i int) error {
	return c.do(func() {
		c.cancelPending()
		last := c.tr.Len() - 1
		c.index = min(max(i, 0), last)
		switch {
		case c.index == last:
			c.mode = ModeFinished
		case c.mode == ModeFinished:
			c.mode = ModePaused
		case c.mode == ModePlaying:
			c.schedule()
		}
	})
}

// SetSpeed меняет множитель скорости. Уже запланированный шаг не переносится.
func (c *Controller) SetSpeed(m float64) error {
	if !validSpeed(m) {
		return ErrInvalidSpeed
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.speed = m
	c.commit()
	return nil
}

// Close отменяет отложенный шаг и отписывает наблюдателей.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.cancelPending()
	if c.mode == ModePlaying {
		c.mode = ModePaused
	}
	c.closed = true
	c.subs = map[int]func(Update){}
	return nil
}

// State возвращает текущее состояние.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Current возвращает снимок текущего шага.
func (c *Controller) Current() (trace.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return trace.Snapshot{}, false
	}
	return c.tr.At(c.index)
}

// Status возвращает состояние вместе с текущим снимком.
func (c *Controller) Status() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked()
}

// Trace возвращает загруженную трассу.
func (c *Controller) Trace() (trace.Trace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr, c.loaded
}

// Subscribe регистрирует наблюдателя. Возвращённая функция снимает подписку;
// уже поставленные в очередь оповещения после неё ещё могут прийти.
func (c *Controller) Subscribe(fn func(Update)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// do выполняет переход над загруженной трассой и оповещает наблюдателей.
func (c *Controller) do(fn func()) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.loaded {
		c.mu.Unlock()
		return ErrNoTrace
	}
	before := c.stateLocked()
	fn()
	after := c.stateLocked()
	if after == before {
		c.mu.Unlock()
		return nil
	}
	c.logf("%s: index %d -> %d, mode %s -> %s", after.Algorithm, before.Index, after.Index, before.Mode, after.Mode)
	c.commit()
	return nil
}

// commit ставит новое состояние в очередь оповещений и отпускает mu.
// Вызывается с захваченным mu. Очередь разбирает одна горутина за раз,
// это сохраняет порядок без удержания блокировок во время вызова наблюдателей.
func (c *Controller) commit() {
	if len(c.subs) > 0 {
		subs := make([]func(Update), 0, len(c.subs))
		for id := 0; id < c.nextSub; id++ {
			if fn, ok := c.subs[id]; ok {
				subs = append(subs, fn)
			}
		}
		c.queue = append(c.queue, notification{subs: subs, upd: c.updateLocked()})
	}
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.queue) > 0 {
		n := c.queue[0]
		c.queue[0] = notification{}
		c.queue = c.queue[1:]
		c.mu.Unlock()
		c.deliver(n)
		c.mu.Lock()
	}
	c.dispatching = false
	c.mu.Unlock()
}

// deliver вызывает наблюдателей без блокировок. Если наблюдатель паникует,
// рассылку подхватит следующий commit.
func (c *Controller) deliver(n notification) {
	delivered := false
	defer func() {
		if !delivered {
			c.mu.Lock()
			c.dispatching = false
			c.mu.Unlock()
		}
	}()
	for _, fn := range n.subs {
		fn(n.upd)
	}
	delivered = true
}

func (c *Controller) stepForward() {
	last := c.tr.Len() - 1
	if c.index < last {
		c.index++
	}
	if c.index == last {
		c.cancelPending()
		c.mode = ModeFinished
	}
}

// schedule заменяет отложенный шаг новым. Вызывается под mu.
func (c *Controller) schedule() {
	c.cancelPending()
	gen := c.gen
	delay := time.Duration(float64(c.base) / c.speed)
	c.pending = c.sched.ScheduleAfter(delay, func() { c.advance(gen) })
}

// cancelPending отменяет отложенный шаг и делает устаревшими уже сработавшие коллбеки.
func (c *Controller) cancelPending() {
	if c.pending != 0 {
		c.sched.Cancel(c.pending)
		c.pending = 0
	}
	c.gen++
}

func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.mode != ModePlaying {
		c.mu.Unlock()
		return
	}
	c.pending = 0
	c.stepForward()
	if c.mode == ModePlaying {
		c.schedule()
	}
	c.commit()
}

func (c *Controller) stateLocked() State {
	return State{
		Algorithm: c.tr.Algorithm(),
		Index:     c.index,
		Length:    c.tr.Len(),
		Mode:      c.mode,
		Speed:     c.speed,
	}
}

func (c *Controller) updateLocked() Update {
	upd := Update{State: c.stateLocked()}
	if c.loaded {
		if snap, ok := c.tr.At(c.index); ok {
			upd.Snapshot = &snap
		}
	}
	return upd
}

func (c *Controller) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf("[playback] "+format, args...)
	}
}

func validSpeed(m float64) bool {
	return m > 0 && !math.IsInf(m, 0) && !math.IsNaN(m)
}
