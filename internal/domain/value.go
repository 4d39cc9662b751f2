package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldKind enumerates the runtime shapes a form-field value can take.
type FieldKind int

const (
	FieldAbsent FieldKind = iota
	FieldString
	FieldNumber
	FieldList
	FieldObject
)

// FieldValue is a closed tagged variant over the polymorphic form-field
// value shapes. The zero value is absent.
type FieldValue struct {
	Kind FieldKind
	Str  string   // FieldString
	Num  float64  // FieldNumber
	List []string // FieldList, elements stringified in wire order
	Text string   // FieldObject, the "text" sub-field when present
	Raw  string   // FieldObject, fallback string form (raw JSON)
}

// StringValue returns a FieldValue holding s.
func StringValue(s string) FieldValue { return FieldValue{Kind: FieldString, Str: s} }

// NumberValue returns a FieldValue holding n.
func NumberValue(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Num: n} }

// ListValue returns a FieldValue holding the given elements.
func ListValue(elems ...string) FieldValue { return FieldValue{Kind: FieldList, List: elems} }

// ObjectValue returns a FieldValue for a nested object with the given text
// sub-field and raw string form.
func ObjectValue(text, raw string) FieldValue {
	return FieldValue{Kind: FieldObject, Text: text, Raw: raw}
}

// IsAbsent reports whether the value is absent.
func (v FieldValue) IsAbsent() bool { return v.Kind == FieldAbsent }

// UnmarshalJSON maps the wire shape onto the closed variant: JSON null stays
// absent, strings and numbers pass through, array elements are stringified in
// order, and objects keep their "text" sub-field plus the raw JSON as a
// fallback string form.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = FieldValue{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return err
		}
		list := make([]string, 0, len(elems))
		for _, e := range elems {
			list = append(list, rawToString(e))
		}
		*v = FieldValue{Kind: FieldList, List: list}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		text := ""
		if raw, ok := obj["text"]; ok {
			text = rawToString(raw)
		}
		*v = ObjectValue(text, trimmed)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = StringValue(strconv.FormatBool(b))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// Coerce flattens the variant to a display string. The second return is
// false when the value is absent or an empty list; an empty list never
// coerces to the empty string.
func (v FieldValue) Coerce() (string, bool) {
	switch v.Kind {
	case FieldString:
		return v.Str, true
	case FieldNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	case FieldList:
		if len(v.List) == 0 {
			return "", false
		}
		return strings.Join(v.List, ", "), true
	case FieldObject:
		if v.Text != "" {
			return v.Text, true
		}
		return v.Raw, true
	default:
		return "", false
	}
}

func rawToString(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(data))
}
