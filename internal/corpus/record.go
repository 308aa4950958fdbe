// Package corpus holds the quiz record model and its JSON collection encoding.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrMalformedRecord marks a record whose textual fields do not have the expected types.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotCollection is returned when a corpus file is not a JSON array of records.
	ErrNotCollection = errors.New("corpus is not a JSON array")
)

// Choice is one labelled answer candidate.
type Choice struct {
	Label string
	Text  string

	raw *object
}

// Record is one quiz item. Text fields are exposed for reading and rewriting; every
// other key stays in raw form and keeps its original order.
type Record struct {
	// Index is the position of the record in its collection.
	Index int

	ID          string
	Question    string
	Scenario    string
	Explanation string
	Options     []string
	Choices     []Choice

	// Problems lists schema violations. A record with problems is malformed.
	Problems []string

	questionKey string
	raw         *object
	rawBytes    json.RawMessage
}

// NewRecord builds a record from scratch, mainly for tests and tooling.
func NewRecord(id, question, scenario string) Record {
	r := Record{
		ID:          id,
		Question:    question,
		Scenario:    scenario,
		questionKey: "question",
		raw:         &object{},
	}
	for _, kv := range [][2]string{{"id", id}, {"question", question}, {"scenario", scenario}} {
		enc, _ := encodeJSON(kv[1])
		r.raw = r.raw.with(kv[0], enc)
	}
	return r
}

// Malformed reports whether the record failed schema validation.
func (r Record) Malformed() bool {
	return len(r.Problems) > 0
}

// Err returns ErrMalformedRecord wrapped with the problems, or nil.
func (r Record) Err() error {
	if !r.Malformed() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformedRecord, strings.Join(r.Problems, "; "))
}

// Field returns the raw JSON value of any key.
func (r Record) Field(key string) (json.RawMessage, bool) {
	if r.raw == nil {
		return nil, false
	}
	return r.raw.get(key)
}

// StringField returns a string-valued key such as "answer".
func (r Record) StringField(key string) (string, bool) {
	if r.raw == nil {
		return "", false
	}
	return r.raw.getString(key)
}

// Texts returns every textual field value, scenario first.
func (r Record) Texts() []string {
	out := []string{r.Scenario, r.Question, r.Explanation}
	out = append(out, r.Options...)
	for _, c := range r.Choices {
		out = append(out, c.Text)
	}
	return out
}

// Map returns a copy of r with fn applied to every textual field. The ID and all
// non-text fields are left untouched; r itself is not modified.
func (r Record) Map(fn func(string) string) Record {
	out := r
	out.Question = fn(r.Question)
	out.Scenario = fn(r.Scenario)
	out.Explanation = fn(r.Explanation)
	if r.Options != nil {
		out.Options = make([]string, len(r.Options))
		for i, o := range r.Options {
			out.Options[i] = fn(o)
		}
	}
	if r.Choices != nil {
		out.Choices = make([]Choice, len(r.Choices))
		for i, c := range r.Choices {
			c.Text = fn(c.Text)
			out.Choices[i] = c
		}
	}
	out.Problems = slices.Clone(r.Problems)
	return out
}

// Equal reports whether two records carry the same textual content.
func (r Record) Equal(o Record) bool {
	if r.ID != o.ID || r.Question != o.Question || r.Scenario != o.Scenario || r.Explanation != o.Explanation {
		return false
	}
	if !slices.Equal(r.Options, o.Options) || len(r.Choices) != len(o.Choices) {
		return false
	}
	for i := range r.Choices {
		if r.Choices[i].Label != o.Choices[i].Label || r.Choices[i].Text != o.Choices[i].Text {
			return false
		}
	}
	return true
}

// MarshalJSON writes the record back with its original key order. A text field is
// re-encoded only when its value changed.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		if r.rawBytes != nil {
			return r.rawBytes, nil
		}
		return []byte("null"), nil
	}

	obj := r.raw
	var err error
	for key, value := range map[string]string{
		r.questionKey: r.Question,
		"scenario":    r.Scenario,
		"explanation": r.Explanation,
	} {
		if obj, err = withString(obj, key, value); err != nil {
			return nil, err
		}
	}

	if raw, ok := obj.get("options"); ok {
		var old []string
		if json.Unmarshal(raw, &old) == nil && !slices.Equal(old, r.Options) {
			enc, err := encodeJSON(r.Options)
			if err != nil {
				return nil, err
			}
			obj = obj.with("options", enc)
		}
	}

	if raw, ok := obj.get("choices"); ok && r.Choices != nil {
		enc, err := encodeChoices(raw, r.Choices)
		if err != nil {
			return nil, err
		}
		obj = obj.with("choices", enc)
	}

	return obj.MarshalJSON()
}

// withString replaces a string field when the stored value differs. Keys that are
// absent or hold a non-string value are left alone.
func withString(obj *object, key, value string) (*object, error) {
	old, ok := obj.getString(key)
	if !ok || old == value {
		return obj, nil
	}
	enc, err := encodeJSON(value)
	if err != nil {
		return nil, err
	}
	return obj.with(key, enc), nil
}

func encodeChoices(raw json.RawMessage, choices []Choice) (json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) != len(choices) {
		return raw, nil
	}

	changed := false
	for i, c := range choices {
		if c.raw == nil {
			continue
		}
		updated, err := withString(c.raw, "text", c.Text)
		if err != nil {
			return nil, err
		}
		if updated == c.raw {
			continue
		}
		b, err := updated.MarshalJSON()
		if err != nil {
			return nil, err
		}
		elems[i] = b
		changed = true
	}
	if !changed {
		return raw, nil
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// DecodeCollection parses a corpus file. Only a non-array top level is an error;
// individual records that break the schema are returned with Problems set.
func DecodeCollection(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotCollection
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCollection, err)
	}

	records := make([]Record, len(elems))
	for i, elem := range elems {
		records[i] = decodeRecord(i, elem)
	}
	return records, nil
}

func decodeRecord(index int, raw json.RawMessage) Record {
	r := Record{Index: index, Problems: validateRecord(raw)}

	obj, err := decodeObject(raw)
	if err != nil {
		r.rawBytes = raw
		if len(r.Problems) == 0 {
			r.Problems = []string{fmt.Sprintf("(root): %v", err)}
		}
		return r
	}
	r.raw = obj

	r.ID, _ = obj.getString("id")
	r.questionKey = "question"
	if _, ok := obj.get("question"); !ok {
		if _, ok := obj.get("text"); ok {
			r.questionKey = "text"
		}
	}
	r.Question, _ = obj.getString(r.questionKey)
	r.Scenario, _ = obj.getString("scenario")
	r.Explanation, _ = obj.getString("explanation")

	if raw, ok := obj.get("options"); ok {
		_ = json.Unmarshal(raw, &r.Options)
	}
	if raw, ok := obj.get("choices"); ok {
		var elems []json.RawMessage
		if json.Unmarshal(raw, &elems) == nil {
			for _, e := range elems {
				var c Choice
				if co, err := decodeObject(e); err == nil {
					c.raw = co
					c.Label, _ = co.getString("label")
					c.Text, _ = co.getString("text")
				}
				r.Choices = append(r.Choices, c)
			}
		}
	}
	return r
}

// EncodeCollection writes records as an indented JSON array ending in a newline.
func EncodeCollection(records []Record) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		b, err := r.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		compact.Write(b)
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent collection: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
