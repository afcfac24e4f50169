package links

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"navi/internal/domain"
)

// Store maps section names to the links classified into them for one channel.
// A link identity is held in at most one section. Store is not safe for
// concurrent use; callers serialize access per channel.
type Store struct {
	classifier *Classifier
	order      []string
	sections   map[string][]domain.Link
	index      map[domain.Key]string
}

// NewStore returns an empty store with every configured section present.
func NewStore(c *Classifier) *Store {
	s := &Store{
		classifier: c,
		sections:   make(map[string][]domain.Link),
		index:      make(map[domain.Key]string),
	}
	for _, name := range c.Sections() {
		s.addSection(name)
	}
	return s
}

func (s *Store) addSection(name string) {
	if _, ok := s.sections[name]; ok {
		return
	}
	s.order = append(s.order, name)
	s.sections[name] = []domain.Link{}
}

// Merge appends each link to its classified section unless a link with the
// same identity is already stored. It returns the number of links added.
func (s *Store) Merge(links ...domain.Link) int {
	added := 0
	for _, l := range links {
		key := l.Key()
		if _, dup := s.index[key]; dup {
			continue
		}
		section := s.classifier.Classify(l.URL)
		s.addSection(section)
		s.sections[section] = append(s.sections[section], l)
		s.index[key] = section
		added++
	}
	return added
}

// Contains reports whether a link with identity k is stored.
func (s *Store) Contains(k domain.Key) bool {
	_, ok := s.index[k]
	return ok
}

// SectionOf returns the section holding identity k.
func (s *Store) SectionOf(k domain.Key) (string, bool) {
	name, ok := s.index[k]
	return name, ok
}

// Sections returns section names in store order.
func (s *Store) Sections() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Links returns a copy of the links in section, in insertion order.
func (s *Store) Links(section string) []domain.Link {
	src := s.sections[section]
	out := make([]domain.Link, len(src))
	copy(out, src)
	return out
}

// Sorted returns a copy of the links in section ordered by timestamp
// ascending. Links with equal timestamps keep their insertion order.
func (s *Store) Sorted(section string) []domain.Link {
	out := s.Links(section)
	sort.SliceStable(out, func(i, j int) bool {
		return domain.TimestampBefore(out[i].Timestamp, out[j].Timestamp)
	})
	return out
}

// Len returns the total number of stored links.
func (s *Store) Len() int {
	return len(s.index)
}

// MarshalJSON encodes the store as an object of section name to link list,
// with sections in store order. Empty sections are encoded as [].
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		links, err := json.Marshal(s.sections[name])
		if err != nil {
			return nil, fmt.Errorf("encode section %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(links)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode returns the indented structured record for the store.
func (s *Store) Encode() ([]byte, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent record: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Decode rebuilds a store from a structured record. Links stay in the section
// they were persisted under; sections unknown to the classifier are kept and
// ordered by name after the configured ones. Repeated identities are dropped.
func Decode(c *Classifier, data []byte) (*Store, error) {
	var raw map[string][]domain.Link
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	s := NewStore(c)
	var extra []string
	for name := range raw {
		if _, ok := s.sections[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		s.addSection(name)
	}

	for _, name := range s.order {
		for _, l := range raw[name] {
			key := l.Key()
			if _, dup := s.index[key]; dup {
				continue
			}
			s.sections[name] = append(s.sections[name], l)
			s.index[key] = name
		}
	}
	return s, nil
}
