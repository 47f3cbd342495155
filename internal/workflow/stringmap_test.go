package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMapKeepsSourceOrder(t *testing.T) {
	var m StringMap
	require.NoError(t, json.Unmarshal([]byte(`{"zeta": "1", "alpha": "2", "mid": "3"}`), &m))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	v, ok := m.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = m.Get("missing")
	assert.False(t, ok)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"1","alpha":"2","mid":"3"}`, string(out))
}

func TestStringMapUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    StringMap
		wantErr bool
	}{
		{name: "null", in: `null`, want: nil},
		{name: "empty", in: `{}`, want: StringMap{}},
		{name: "scalars", in: `{"n": 8, "f": 1.50, "b": true, "z": null}`, want: StringMap{{"n", "8"}, {"f", "1.50"}, {"b", "true"}, {"z", ""}}},
		{name: "repeated key", in: `{"a": "1", "b": "2", "a": "3"}`, want: StringMap{{"a", "3"}, {"b", "2"}}},
		{name: "array", in: `["a"]`, wantErr: true},
		{name: "nested object", in: `{"a": {"b": "c"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringMap
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringMapInsideSettings(t *testing.T) {
	job, err := DecodeJob([]byte(`{"job_id": 3, "settings": {"name": "ordered", "tags": {"zeta": "1", "alpha": "2"}}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, job.Summary().Tags.Keys())

	out, err := json.Marshal(job.Summary())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"tags":{"zeta":"1","alpha":"2"}`)
}
