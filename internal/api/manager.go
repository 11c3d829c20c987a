package api

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pv/algoviz-go/internal/generator"
	"github.com/pv/algoviz-go/internal/input"
	"github.com/pv/algoviz-go/internal/listing"
	"github.com/pv/algoviz-go/internal/playback"
	"github.com/pv/algoviz-go/internal/trace"
)

// ErrSessionNotFound возвращается для неизвестного идентификатора сессии.
var ErrSessionNotFound = errors.New("session not found")

// Source описывает, что визуализировать: алгоритм сортировки над input
// либо построчный просмотр source для алгоритма "code".
type Source struct {
	Algorithm string `json:"algorithm"`
	Input     string `json:"input,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Session: одна визуализация со своим контроллером проигрывания.
type Session struct {
	ID      string
	Created time.Time

	ctrl        *playback.Controller
	unsubscribe func()
}

// Controller возвращает контроллер проигрывания сессии.
func (s *Session) Controller() *playback.Controller { return s.ctrl }

// SessionInfo: представление сессии в ответах API.
type SessionInfo struct {
	ID       string          `json:"id"`
	Created  time.Time       `json:"created"`
	State    playback.State  `json:"state"`
	Snapshot *trace.Snapshot `json:"snapshot,omitempty"`
}

// Info возвращает состояние сессии вместе с текущим снимком.
func (s *Session) Info() SessionInfo {
	upd := s.ctrl.Status()
	return SessionInfo{ID: s.ID, Created: s.Created, State: upd.State, Snapshot: upd.Snapshot}
}

// Manager хранит сессии визуализации. Каждая сессия владеет своим контроллером,
// трассы разделяются только на чтение.
type Manager struct {
	mu sync.Mutex

	registry *generator.Registry
	sched    playback.Scheduler
	ctrlOpts []playback.Option
	streamer *StateStreamer
	sessions map[string]*Session
}

// NewManager создаёт менеджер. При registry == nil используются встроенные листинги без кэша,
// при sched == nil реальные таймеры; streamer может быть nil.
func NewManager(registry *generator.Registry, sched playback.Scheduler, streamer *StateStreamer, opts ...playback.Option) *Manager {
	if registry == nil {
		registry = generator.NewRegistry(nil, generator.WithObserver(ObserveTrace))
	}
	if sched == nil {
		sched = playback.NewTimerScheduler()
	}
	return &Manager{
		registry: registry,
		sched:    sched,
		ctrlOpts: opts,
		streamer: streamer,
		sessions: map[string]*Session{},
	}
}

// Registry возвращает генератор трасс менеджера.
func (m *Manager) Registry() *generator.Registry { return m.registry }

// Build проверяет источник и строит трассу.
func (m *Manager) Build(src Source) (trace.Trace, error) {
	alg, err := listing.ParseAlgorithm(src.Algorithm)
	if err != nil {
		return trace.Trace{}, err
	}
	if alg == listing.Code {
		return m.registry.GenerateSource(src.Source), nil
	}
	seq, err := input.ParseSequence(src.Input)
	if err != nil {
		return trace.Trace{}, err
	}
	return m.registry.Generate(alg, seq)
}

// Create строит трассу и открывает для неё новую сессию.
func (m *Manager) Create(src Source) (*Session, error) {
	tr, err := m.Build(src)
	if err != nil {
		return nil, err
	}
	ctrl := playback.New(m.sched, m.ctrlOpts...)
	if err := ctrl.Load(tr); err != nil {
		return nil, err
	}
	sess := &Session{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		ctrl:    ctrl,
	}
	if m.streamer != nil {
		id := sess.ID
		sess.unsubscribe = ctrl.Subscribe(func(upd playback.Update) {
			m.streamer.Publish(id, upd.State, upd.Snapshot)
		})
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	activeSessions.Inc()
	log.Printf("[session] %s created: %s, %d snapshots", sess.ID, tr.Algorithm(), tr.Len())
	return sess, nil
}

// Get возвращает сессию по идентификатору.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Load заменяет трассу сессии. При ошибке проверки текущая трасса и состояние не меняются.
func (m *Manager) Load(id string, src Source) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	tr, err := m.Build(src)
	if err != nil {
		return err
	}
	if err := sess.ctrl.Load(tr); err != nil {
		return err
	}
	logDebugf("[session] %s reloaded: %s, %d snapshots", id, tr.Algorithm(), tr.Len())
	return nil
}

// Delete закрывает сессию, отменяя отложенный шаг, и отключает её подписчиков.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.dispose(sess)
	log.Printf("[session] %s deleted", id)
	return nil
}

// List возвращает сессии в порядке создания.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Created.Equal(sessions[j].Created) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Created.Before(sessions[j].Created)
	})
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Info())
	}
	return out
}

// Close закрывает все сессии.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, sess := range sessions {
		m.dispose(sess)
	}
}

func (m *Manager) dispose(sess *Session) {
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	_ = sess.ctrl.Close()
	if m.streamer != nil {
		m.streamer.CloseSession(sess.ID)
	}
	activeSessions.Dec()
}
