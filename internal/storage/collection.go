package storage

import (
	"encoding/json"
	"fmt"

	"github.com/starford/notely/internal/models"
)

// collection is an insertion-ordered set of notes keyed by id. It backs
// the backends that keep the whole note array as one record.
type collection struct {
	notes []models.Note
	index map[string]int
}

func newCollection(notes []models.Note) (*collection, error) {
	c := &collection{
		notes: make([]models.Note, 0, len(notes)),
		index: make(map[string]int, len(notes)),
	}
	for _, n := range notes {
		if err := c.insert(n); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// decodeCollection parses a JSON array of notes. Empty input is an empty collection.
func decodeCollection(data []byte) (*collection, error) {
	if len(data) == 0 {
		return newCollection(nil)
	}
	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("storage: decode collection: %w", err)
	}
	return newCollection(notes)
}

func (c *collection) marshal() ([]byte, error) {
	data, err := json.MarshalIndent(c.notes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode collection: %w", err)
	}
	return data, nil
}

func (c *collection) clone() *collection {
	out := &collection{
		notes: make([]models.Note, len(c.notes)),
		index: make(map[string]int, len(c.index)),
	}
	for i, n := range c.notes {
		out.notes[i] = n.Clone()
	}
	for k, v := range c.index {
		out.index[k] = v
	}
	return out
}

func (c *collection) insert(n models.Note) error {
	if _, ok := c.index[n.ID]; ok {
		return fmt.Errorf("storage: duplicate note id %q", n.ID)
	}
	c.index[n.ID] = len(c.notes)
	c.notes = append(c.notes, n.Clone())
	return nil
}

func (c *collection) get(id string) (models.Note, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.Note{}, false
	}
	return c.notes[i].Clone(), true
}

func (c *collection) replace(n models.Note) bool {
	i, ok := c.index[n.ID]
	if !ok {
		return false
	}
	c.notes[i] = n.Clone()
	return true
}

func (c *collection) remove(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.notes = append(c.notes[:i], c.notes[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.notes); j++ {
		c.index[c.notes[j].ID] = j
	}
	return true
}

func (c *collection) byOwner(ownerID string) []models.Note {
	out := []models.Note{}
	for _, n := range c.notes {
		if n.OwnerID == ownerID {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (c *collection) len() int { return len(c.notes) }
