package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

const (
	MaxCustomFields          = 20
	MaxCustomFieldKeyLength  = 50
	MaxCustomFieldTextLength = 500
)

var customFieldKeyPattern = regexp.MustCompile(`^[A-Za-z0-9 _.\-]+$`)

// CustomFieldKind enumerates the scalar kinds a custom field may hold.
type CustomFieldKind uint8

const (
	CustomFieldString CustomFieldKind = iota + 1
	CustomFieldNumber
	CustomFieldBool
)

// CustomFieldValue is a string, number or boolean. The zero value is invalid.
type CustomFieldValue struct {
	kind CustomFieldKind
	str  string
	num  float64
	flag bool
}

func StringValue(v string) CustomFieldValue {
	return CustomFieldValue{kind: CustomFieldString, str: v}
}

func NumberValue(v float64) CustomFieldValue {
	return CustomFieldValue{kind: CustomFieldNumber, num: v}
}

func BoolValue(v bool) CustomFieldValue {
	return CustomFieldValue{kind: CustomFieldBool, flag: v}
}

func (v CustomFieldValue) Kind() CustomFieldKind { return v.kind }

// String renders the value for text exports.
func (v CustomFieldValue) String() string {
	switch v.kind {
	case CustomFieldString:
		return v.str
	case CustomFieldNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case CustomFieldBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

func (v CustomFieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case CustomFieldString:
		return json.Marshal(v.str)
	case CustomFieldNumber:
		return json.Marshal(v.num)
	case CustomFieldBool:
		return json.Marshal(v.flag)
	default:
		return nil, fmt.Errorf("custom field value has no kind")
	}
}

// UnmarshalJSON accepts only JSON strings, numbers and booleans.
func (v *CustomFieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty custom field value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case 'n', '{', '[':
		return fmt.Errorf("custom field values must be a string, number or boolean")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("custom field values must be a string, number or boolean")
		}
		*v = NumberValue(n)
	}
	return nil
}

// CustomFields is the owner-defined attribute map of an item, stored as JSONB.
type CustomFields map[string]CustomFieldValue

// Validate enforces the size limits. The returned message names the field.
func (f CustomFields) Validate() error {
	if len(f) > MaxCustomFields {
		return fmt.Errorf("customFields: at most %d fields are allowed", MaxCustomFields)
	}
	for key, value := range f {
		if n := utf8.RuneCountInString(key); n == 0 || n > MaxCustomFieldKeyLength {
			return fmt.Errorf("customFields: key %q must be 1-%d characters", key, MaxCustomFieldKeyLength)
		}
		if !customFieldKeyPattern.MatchString(key) {
			return fmt.Errorf("customFields: key %q contains unsupported characters", key)
		}
		switch value.kind {
		case CustomFieldString:
			if utf8.RuneCountInString(value.str) > MaxCustomFieldTextLength {
				return fmt.Errorf("customFields.%s: must be at most %d characters", key, MaxCustomFieldTextLength)
			}
		case CustomFieldNumber, CustomFieldBool:
		default:
			return fmt.Errorf("customFields.%s: value is required", key)
		}
	}
	return nil
}

// Value implements driver.Valuer.
func (f CustomFields) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]CustomFieldValue(f))
}

// Scan implements sql.Scanner.
func (f *CustomFields) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = CustomFields{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported custom fields source %T", src)
	}
	fields := CustomFields{}
	if err := json.Unmarshal(raw, (*map[string]CustomFieldValue)(&fields)); err != nil {
		return fmt.Errorf("decode custom fields: %w", err)
	}
	*f = fields
	return nil
}
