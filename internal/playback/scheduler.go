package playback

import (
	"sort"
	"sync"
	"time"
)

// Handle идентифицирует отложенный вызов. Нулевой Handle ничего не обозначает.
type Handle uint64

// Scheduler откладывает вызов fn на d. Вызов выполняется не более одного раза
// и не выполняется вовсе, если Cancel сделан до истечения задержки.
type Scheduler interface {
	ScheduleAfter(d time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// TimerScheduler: планировщик на time.AfterFunc. Коллбеки выполняются в отдельных горутинах.
type TimerScheduler struct {
	mu     sync.Mutex
	nextID Handle
	timers map[Handle]*time.Timer
}

// NewTimerScheduler создаёт планировщик на реальных таймерах.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: map[Handle]*time.Timer{}}
}

func (s *TimerScheduler) ScheduleAfter(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return id
}

func (s *TimerScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending возвращает количество ожидающих вызовов.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler: планировщик с виртуальными часами. Время двигает только Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID Handle
	queue  []manualTask
}

type manualTask struct {
	id  Handle
	due time.Duration
	fn  func()
}

// NewManualScheduler создаёт планировщик с часами на нуле.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) ScheduleAfter(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.nextID++
	s.queue = append(s.queue, manualTask{id: s.nextID, due: s.now + d, fn: fn})
	return s.nextID
}

func (s *ManualScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, task := range s.queue {
		if task.id == h {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// Advance сдвигает часы на d и выполняет все созревшие вызовы по порядку,
// включая запланированные самими коллбеками в пределах окна.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		sort.SliceStable(s.queue, func(i, j int) bool { return s.queue[i].due < s.queue[j].due })
		if len(s.queue) == 0 || s.queue[0].due > target {
			s.now = target
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue = s.queue[1:]
		s.now = task.due
		s.mu.Unlock()
		task.fn()
	}
}

// Now возвращает виртуальное время.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending возвращает количество ожидающих вызовов.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// NextDelay возвращает задержку до ближайшего вызова.
func (s *ManualScheduler) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	min := s.queue[0].due
	for _, task := range s.queue[1:] {
		if task.due < min {
			min = task.due
		}
	}
	return min - s.now, true
}
