package memory

import (
	"EduHub/internal/models"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SearchIndex ranks courses by how many query words their title and
// description contain; title hits weigh three times as much.
type SearchIndex struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]models.Course
}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{docs: make(map[uuid.UUID]models.Course)}
}

func (i *SearchIndex) Index(_ context.Context, c models.Course) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[c.ID] = c
	return nil
}

func (i *SearchIndex) Delete(_ context.Context, id uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs, id)
	return nil
}

func (i *SearchIndex) Search(_ context.Context, query string, from, size int) ([]uuid.UUID, int, error) {
	words := strings.Fields(strings.ToLower(query))
	type hit struct {
		id    uuid.UUID
		score int
	}
	i.mu.RLock()
	var hits []hit
	for id, c := range i.docs {
		title, desc := strings.ToLower(c.Title), strings.ToLower(c.Description)
		score := 0
		for _, w := range words {
			if strings.Contains(title, w) {
				score += 3
			}
			if strings.Contains(desc, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{id, score})
		}
	}
	i.mu.RUnlock()

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].id.String() < hits[b].id.String()
	})
	total := len(hits)
	if from < 0 {
		from = 0
	}
	if size <= 0 {
		size = 10
	}
	if from > total {
		from = total
	}
	end := min(from+size, total)
	ids := make([]uuid.UUID, 0, end-from)
	for _, h := range hits[from:end] {
		ids = append(ids, h.id)
	}
	return ids, total, nil
}
