package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
	"type": "object",
	"required": ["name", "tags"],
	"properties": {
		"name": {"type": "string", "minLength": 3, "maxLength": 10},
		"tags": {"type": "array", "minItems": 1, "items": {"type": "string", "pattern": "^[a-z]+$"}}
	}
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile(personSchema)

	tests := []struct {
		name      string
		doc       map[string]interface{}
		valid     bool
		errField  string
		errorCode string
	}{
		{"valid", map[string]interface{}{"name": "Ana Maria", "tags": []interface{}{"x"}}, true, "", ""},
		{"missing name", map[string]interface{}{"tags": []interface{}{"x"}}, false, "name", "REQUIRED_FIELD_MISSING"},
		{"short name", map[string]interface{}{"name": "An", "tags": []interface{}{"x"}}, false, "name", "MIN_LENGTH_VIOLATION"},
		{"empty tags", map[string]interface{}{"name": "Ana", "tags": []interface{}{}}, false, "tags", "ITEM_COUNT_VIOLATION"},
		{"bad tag", map[string]interface{}{"name": "Ana", "tags": []interface{}{"X1"}}, false, "tags.0", "PATTERN_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Validate(tt.doc)
			assert.Equal(t, tt.valid, res.Valid)
			if tt.valid {
				assert.NoError(t, res.Error())
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.True(t, res.HasErrors(tt.errField), "errors: %v", res.GetErrorMessages())
			assert.Equal(t, tt.errorCode, res.GetErrorsForField(tt.errField)[0].Code)
			assert.Error(t, res.Error())
		})
	}
}

func TestSchema_ValidateBytes(t *testing.T) {
	s := MustCompile(personSchema)

	assert.True(t, s.ValidateBytes([]byte(`{"name":"José","tags":["a"]}`)).Valid)

	res := s.ValidateBytes([]byte(`{not json`))
	assert.False(t, res.Valid)
	assert.Equal(t, "INVALID_DOCUMENT", res.Errors[0].Code)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://cdn.example.com/a.jpg"))
	assert.False(t, ValidateURL("ftp//nope"))
}
