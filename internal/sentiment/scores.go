// Package sentiment holds the emotion score types shared by every component.
package sentiment

import (
	"bytes"
	"encoding/json"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Emotion is one label/intensity pair.
type Emotion struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Scores maps emotion labels to intensities and remembers insertion order,
// which is the tie-breaker when ranking. The zero value is empty and usable.
type Scores struct {
	m *orderedmap.OrderedMap[string, float64]
}

// NewScores builds Scores from pairs in the given order.
// A repeated label keeps its first position and takes the last value.
func NewScores(emotions ...Emotion) Scores {
	s := Scores{m: orderedmap.New[string, float64]()}
	for _, e := range emotions {
		s.m.Set(e.Label, e.Score)
	}
	return s
}

// Len returns the number of labels.
func (s Scores) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Get returns the score for label.
func (s Scores) Get(label string) (float64, bool) {
	if s.m == nil {
		return 0, false
	}
	return s.m.Get(label)
}

// Emotions returns the pairs in insertion order.
func (s Scores) Emotions() []Emotion {
	if s.m == nil {
		return nil
	}
	out := make([]Emotion, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Emotion{Label: pair.Key, Score: pair.Value})
	}
	return out
}

// Ranked returns the pairs sorted by descending score.
// Equal scores keep insertion order.
func (s Scores) Ranked() []Emotion {
	out := s.Emotions()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Top returns the labels of the n highest-ranked emotions.
func (s Scores) Top(n int) map[string]bool {
	top := make(map[string]bool, n)
	for i, e := range s.Ranked() {
		if i >= n {
			break
		}
		top[e.Label] = true
	}
	return top
}

// Clone returns an independent copy.
func (s Scores) Clone() Scores {
	return NewScores(s.Emotions()...)
}

// MarshalJSON encodes Scores as a JSON object with keys in insertion order.
func (s Scores) MarshalJSON() ([]byte, error) {
	if s.m == nil {
		return []byte("{}"), nil
	}
	return s.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping key order. null decodes to empty.
func (s *Scores) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, float64]()
	if trimmed := bytes.TrimSpace(data); !bytes.Equal(trimmed, []byte("null")) {
		if err := m.UnmarshalJSON(trimmed); err != nil {
			return err
		}
	}
	s.m = m
	return nil
}

// Map returns an unordered copy, for stores that cannot keep key order.
func (s Scores) Map() map[string]float64 {
	out := make(map[string]float64, s.Len())
	for _, e := range s.Emotions() {
		out[e.Label] = e.Score
	}
	return out
}

// FromMap builds Scores from an unordered map, ordering labels alphabetically.
func FromMap(m map[string]float64) Scores {
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	s := NewScores()
	for _, k := range labels {
		s.m.Set(k, m[k])
	}
	return s
}

var _ json.Marshaler = Scores{}
var _ json.Unmarshaler = (*Scores)(nil)
