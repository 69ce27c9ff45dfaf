package news

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Section is one named topic bucket.
type Section[T any] struct {
	Topic string
	Items []T
}

// Sections is an ordered topic -> items mapping. It serialises as a JSON
// object whose keys keep slice order.
type Sections[T any] []Section[T]

// Get returns the items of a topic and whether the topic exists.
func (s Sections[T]) Get(topic string) ([]T, bool) {
	for _, sec := range s {
		if sec.Topic == topic {
			return sec.Items, true
		}
	}
	return nil, false
}

// Index returns the position of a topic or -1.
func (s Sections[T]) Index(topic string) int {
	for i, sec := range s {
		if sec.Topic == topic {
			return i
		}
	}
	return -1
}

// Len returns the total number of items across sections.
func (s Sections[T]) Len() int {
	n := 0
	for _, sec := range s {
		n += len(sec.Items)
	}
	return n
}

func (s Sections[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(sec.Topic)
		if err != nil {
			return nil, err
		}
		items := sec.Items
		if items == nil {
			items = []T{}
		}
		val, err := marshalRaw(items)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.Topic, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalRaw encodes without HTML escaping. The enclosing encoder escapes
// the result again when it is configured to.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (s *Sections[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sections: expected object, got %v", tok)
	}

	var out Sections[T]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sections: unexpected key %v", keyTok)
		}
		var items []T
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("section %s: %w", key, err)
		}
		out = append(out, Section[T]{Topic: key, Items: items})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}
