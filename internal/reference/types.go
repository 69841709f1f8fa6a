package reference

import "strings"

// Template is a reference template: an ordered sequence of sections.
type Template []Section

// Value is a decoded section value. It is always one of ListValue, MapValue
// or ScalarValue; the shape is decided once when the document is decoded.
type Value interface {
	isValue()
}

// ListValue is a flat list of strings.
type ListValue []string

// MapValue is a mapping that keeps its keys in document order.
type MapValue []Entry

// ScalarValue is any single value that is neither a list nor a mapping.
type ScalarValue string

func (ListValue) isValue()   {}
func (MapValue) isValue()    {}
func (ScalarValue) isValue() {}

// Entry is a single key/value pair of a MapValue.
type Entry struct {
	Key   string
	Value Value
}

// Get returns the value stored under key.
func (m MapValue) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the mapping's keys in document order.
func (m MapValue) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, e := range m {
		keys = append(keys, e.Key)
	}
	return keys
}

// Section is one record of a reference template. Its keys are free-text
// labels such as "Clinical Pearls".
type Section struct {
	Entries MapValue

	// text is rendered from the source document and, unlike Entries, still
	// holds structures nested inside lists.
	text string
}

// Text renders every key and value of the section into a single string.
// Section classification searches this text for marker substrings.
func (s Section) Text() string {
	if s.text != "" {
		return s.text
	}
	var b strings.Builder
	writeText(&b, s.Entries)
	return b.String()
}

func writeText(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case MapValue:
		for _, e := range v {
			b.WriteString(e.Key)
			b.WriteString(": ")
			writeText(b, e.Value)
			b.WriteString("\n")
		}
	case ListValue:
		b.WriteString(strings.Join(v, ", "))
	case ScalarValue:
		b.WriteString(string(v))
	}
}
