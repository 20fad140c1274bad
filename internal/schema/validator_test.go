package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewDefault()
	require.NoError(t, err)
	return v
}

func TestValidate_Accepts(t *testing.T) {
	v := newValidator(t)
	docs := []string{
		`{}`,
		`{"points": [], "lines": [], "aux": []}`,
		`{
		  "document_meta": {"title": "t", "extra": 1},
		  "points": [{"meta": {"uuid": "a", "label": "x"}, "appearance": {"frames": [1, "2"], "position": [0, 1, 2]}}],
		  "lines":  [{"uuid": "l", "end_a": {"ref": "a"}, "end_b": {"coord": [1, 1, 1]}, "frames": {"start": 0, "end": 3}}],
		  "aux":    [{"uuid": "g", "appearance": {"module": {"grid": {"size": 4}}}, "frames": null}]
		}`,
	}
	for i, doc := range docs {
		assert.True(t, v.Validate([]byte(doc)), "doc %d: %v", i, v.Errors())
		assert.Empty(t, v.Errors())
	}
}

func TestValidate_Rejects(t *testing.T) {
	v := newValidator(t)
	tests := []struct {
		name    string
		doc     string
		path    string
		keyword string
	}{
		{"wrong collection type", `{"points": 5}`, "/points", "type"},
		{"unknown top-level field", `{"meshes": []}`, "/meshes", "additionalProperties"},
		{"empty uuid", `{"points": [{"uuid": ""}]}`, "/points/0/uuid", ""},
		{"bad position", `{"points": [{"position": [1, 2]}]}`, "/points/0/position", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, v.Validate([]byte(tt.doc)))
			errs := v.Errors()
			require.NotEmpty(t, errs)

			found := false
			for _, e := range errs {
				if strings.HasPrefix(e.InstancePath, tt.path) {
					found = true
					if tt.keyword != "" {
						assert.Equal(t, tt.keyword, e.Keyword, e.String())
					}
				}
				assert.NotEmpty(t, e.Message)
			}
			assert.True(t, found, "no error under %s: %v", tt.path, errs)
		})
	}
}

func TestValidate_Syntax(t *testing.T) {
	v := newValidator(t)
	assert.False(t, v.Validate([]byte(`{"points": [`)))
	errs := v.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "syntax", errs[0].Keyword)
}

func TestValidate_NotInitialized(t *testing.T) {
	v := New()
	assert.False(t, v.Validate([]byte(`{}`)))
	require.Len(t, v.Errors(), 1)
	assert.Contains(t, v.Errors()[0].Message, ErrNotInitialized.Error())
}

func TestInit_Errors(t *testing.T) {
	v := New()
	assert.Error(t, v.Init([]byte(`#Document: {`)))
	assert.Error(t, v.Init([]byte(`#Other: {}`)))
	require.NoError(t, v.Init([]byte(`#Document: {name: string}`)))
	assert.True(t, v.Validate([]byte(`{"name": "x"}`)))
	assert.False(t, v.Validate([]byte(`{"name": 1}`)))
}

func TestValidateValue(t *testing.T) {
	v := newValidator(t)
	assert.True(t, v.ValidateValue(map[string]any{"points": []any{map[string]any{"uuid": "p"}}}))
	assert.False(t, v.ValidateValue(map[string]any{"points": "nope"}))
	assert.False(t, v.ValidateValue(map[string]any{"bad": make(chan int)}))
}

func TestPointer(t *testing.T) {
	assert.Equal(t, "", pointer(nil))
	assert.Equal(t, "/points/0/uuid", pointer([]string{"#Document", "points", "0", "uuid"}))
	assert.Equal(t, "/a~1b/c~0d", pointer([]string{"a/b", "c~d"}))
}
