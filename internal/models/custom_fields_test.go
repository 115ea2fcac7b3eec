package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFieldsUnmarshalScalars(t *testing.T) {
	var fields CustomFields
	require.NoError(t, json.Unmarshal([]byte(`{"color":"red","weight":1.5,"insured":true}`), &fields))

	assert.Equal(t, CustomFieldString, fields["color"].Kind())
	assert.Equal(t, "red", fields["color"].String())
	assert.Equal(t, CustomFieldNumber, fields["weight"].Kind())
	assert.Equal(t, "1.5", fields["weight"].String())
	assert.Equal(t, CustomFieldBool, fields["insured"].Kind())
	assert.NoError(t, fields.Validate())

	out, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"red","weight":1.5,"insured":true}`, string(out))
}

func TestCustomFieldsRejectNonScalars(t *testing.T) {
	for _, payload := range []string{`{"a":null}`, `{"a":{"b":1}}`, `{"a":[1]}`} {
		var fields CustomFields
		assert.Error(t, json.Unmarshal([]byte(payload), &fields), payload)
	}
}

func TestCustomFieldsValidateLimits(t *testing.T) {
	tooMany := CustomFields{}
	for i := 0; i <= MaxCustomFields; i++ {
		tooMany[strings.Repeat("k", i+1)] = BoolValue(true)
	}
	assert.ErrorContains(t, tooMany.Validate(), "customFields")

	assert.Error(t, CustomFields{strings.Repeat("k", 51): BoolValue(true)}.Validate())
	assert.Error(t, CustomFields{"bad/key": BoolValue(true)}.Validate())
	assert.Error(t, CustomFields{"note": StringValue(strings.Repeat("x", 501))}.Validate())
	assert.Error(t, CustomFields{"empty": {}}.Validate())
	assert.NoError(t, CustomFields{"Serial no.": StringValue(strings.Repeat("x", 500))}.Validate())
}

func TestCustomFieldsDatabaseRoundTrip(t *testing.T) {
	fields := CustomFields{"color": StringValue("blue"), "count": NumberValue(2)}
	value, err := fields.Value()
	require.NoError(t, err)

	var scanned CustomFields
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, fields, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)

	var nilFields CustomFields
	value, err = nilFields.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), value)
}
