package model

import "encoding/json"

// UnitSeparator joins the parts of a multi-part answer when a single flat
// string is required (the audit line). It is reserved: submitted values must
// not contain it.
const UnitSeparator = "\x1f"

// AnswerValue is one submitted form value: either a scalar or an ordered
// sequence (multi-part widgets submit sequences). The JSON form is a bare
// string or an array of strings, matching what the renderer posts.
type AnswerValue struct {
	parts  []string
	isList bool
}

// Scalar wraps a single-valued answer.
func Scalar(v string) AnswerValue {
	return AnswerValue{parts: []string{v}}
}

// Sequence wraps a multi-valued answer, preserving order.
func Sequence(vs ...string) AnswerValue {
	return AnswerValue{parts: vs, isList: true}
}

// IsSequence reports whether the value is multi-part.
func (v AnswerValue) IsSequence() bool { return v.isList }

// Parts returns the ordered raw parts. A scalar has exactly one part.
func (v AnswerValue) Parts() []string { return v.parts }

// Flat renders the value as a single string, joining sequence parts with the
// reserved separator. The zero value renders as the empty string.
func (v AnswerValue) Flat() string {
	switch len(v.parts) {
	case 0:
		return ""
	case 1:
		return v.parts[0]
	}
	out := v.parts[0]
	for _, p := range v.parts[1:] {
		out += UnitSeparator + p
	}
	return out
}

// MarshalJSON encodes a scalar as a JSON string and a sequence as an array.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.parts == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.parts)
	}
	return json.Marshal(v.Flat())
}

// UnmarshalJSON accepts either shape.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		if parts == nil {
			parts = []string{}
		}
		*v = AnswerValue{parts: parts, isList: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = AnswerValue{parts: []string{s}}
	return nil
}

// ReplayEntry is one name/value pair in the sticky-answer blob. Entries are
// ordered; the blob must round-trip so the frontend can repopulate the form
// exactly as it was submitted.
type ReplayEntry struct {
	Name  string      `json:"n"`
	Value AnswerValue `json:"v"`
}

// EncodeReplay serializes the ordered entries into the persisted blob form.
func EncodeReplay(entries []ReplayEntry) (string, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeReplay reverses EncodeReplay. An empty blob decodes to no entries.
func DecodeReplay(blob string) ([]ReplayEntry, error) {
	if blob == "" {
		return nil, nil
	}
	var entries []ReplayEntry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
