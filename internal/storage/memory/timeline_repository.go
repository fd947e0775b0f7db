package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

// timelineLog хранит аудит-события заказов в памяти, по срезу на заказ.
type timelineLog struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineLog{byOrder: make(map[string][]domain.TimelineEvent)}
}

// Append дописывает событие, поддерживая срез отсортированным по времени.
func (l *timelineLog) Append(event domain.TimelineEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := append(l.byOrder[event.OrderID], event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	l.byOrder[event.OrderID] = events
	return nil
}

// List возвращает копию событий заказа в хронологическом порядке.
func (l *timelineLog) List(orderID string) ([]domain.TimelineEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := l.byOrder[orderID]
	out := make([]domain.TimelineEvent, len(events))
	copy(out, events)
	return out, nil
}

var _ domain.TimelineRepository = (*timelineLog)(nil)
