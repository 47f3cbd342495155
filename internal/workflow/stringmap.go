package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringPair is one entry of a StringMap.
type StringPair struct {
	Key   string
	Value string
}

// StringMap is a string-to-string mapping that keeps the key order the
// service sent. Tags, Spark conf and task parameters are all StringMaps.
type StringMap []StringPair

// Get returns the value stored under key.
func (m StringMap) Get(key string) (string, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Keys returns the keys in order.
func (m StringMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, p := range m {
		keys = append(keys, p.Key)
	}
	return keys
}

// MarshalJSON writes the pairs as a JSON object in order.
func (m StringMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. A repeated key keeps
// its first position and takes the last value. Number and bool values are
// kept in their literal form.
func (m *StringMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("string map: expected object, got %v", tok)
	}

	out := StringMap{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("string map: expected key, got %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		var value string
		switch v := tok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = fmt.Sprint(v)
		case nil:
		default:
			return fmt.Errorf("string map: key %q: expected scalar value, got %v", key, tok)
		}
		if i, seen := index[key]; seen {
			out[i].Value = value
			continue
		}
		index[key] = len(out)
		out = append(out, StringPair{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
