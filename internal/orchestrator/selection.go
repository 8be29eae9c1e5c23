package orchestrator

import (
	"sync"

	"github.com/iago/content-orchestrator-back/internal/domain"
)

// Selection is the set of topic ids chosen for the next generation run,
// tracked against the current topic list.
type Selection struct {
	mu       sync.RWMutex
	topics   []domain.Topic
	selected map[string]struct{}
	forceAll bool
}

// NewSelection starts with an empty set, or with every topic selected when
// forceAll is set (single-topic flows).
func NewSelection(topics []domain.Topic, forceAll bool) *Selection {
	s := &Selection{selected: make(map[string]struct{}), forceAll: forceAll}
	s.topics = cloneTopics(topics)
	if forceAll {
		s.selectAllLocked()
	}
	return s
}

// SetTopics replaces the topic list and drops selected ids that are no
// longer part of it.
func (s *Selection) SetTopics(topics []domain.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topics = cloneTopics(topics)
	if s.forceAll {
		s.selectAllLocked()
		return
	}
	known := make(map[string]struct{}, len(s.topics))
	for _, topic := range s.topics {
		known[topic.ID] = struct{}{}
	}
	for id := range s.selected {
		if _, ok := known[id]; !ok {
			delete(s.selected, id)
		}
	}
}

// Toggle adds or removes id. Ids outside the current list are ignored.
func (s *Selection) Toggle(id string, included bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.knownLocked(id) {
		return
	}
	if included {
		s.selected[id] = struct{}{}
	} else {
		delete(s.selected, id)
	}
}

func (s *Selection) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectAllLocked()
}

func (s *Selection) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}

func (s *Selection) IsAllSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected) == len(s.topics)
}

func (s *Selection) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected)
}

func (s *Selection) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// SelectedTopics returns the selected topics in topic-list order.
func (s *Selection) SelectedTopics() []domain.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Topic, 0, len(s.selected))
	for _, topic := range s.topics {
		if _, ok := s.selected[topic.ID]; ok {
			result = append(result, topic)
		}
	}
	return cloneTopics(result)
}

func (s *Selection) Topics() []domain.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTopics(s.topics)
}

func (s *Selection) selectAllLocked() {
	s.selected = make(map[string]struct{}, len(s.topics))
	for _, topic := range s.topics {
		s.selected[topic.ID] = struct{}{}
	}
}

func (s *Selection) knownLocked(id string) bool {
	for _, topic := range s.topics {
		if topic.ID == id {
			return true
		}
	}
	return false
}

func cloneTopics(topics []domain.Topic) []domain.Topic {
	if topics == nil {
		return []domain.Topic{}
	}
	result := make([]domain.Topic, len(topics))
	for index, topic := range topics {
		clone := topic
		clone.Keywords = append([]string(nil), topic.Keywords...)
		clone.Outline = append([]string(nil), topic.Outline...)
		clone.Sources = append([]string(nil), topic.Sources...)
		result[index] = clone
	}
	return result
}
