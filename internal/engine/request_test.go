package engine

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandValues(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  map[string]any
	}{
		{
			name:  "flat",
			query: "a=1&b=2&b=3",
			want:  map[string]any{"a": "1", "b": []string{"2", "3"}},
		},
		{
			name:  "nested object",
			query: "user[name]=ada&user[address][city]=london",
			want: map[string]any{"user": map[string]any{
				"name":    "ada",
				"address": map[string]any{"city": "london"},
			}},
		},
		{
			name:  "list suffix",
			query: "tags[]=a&tags[]=b&one[]=x",
			want:  map[string]any{"tags": []string{"a", "b"}, "one": []string{"x"}},
		},
		{
			name:  "malformed keys stay flat",
			query: "a[b=1&[c]=2&d[e]f=3&g[][h]=4",
			want:  map[string]any{"a[b": "1", "[c]": "2", "d[e]f": "3", "g[][h]": "4"},
		},
		{
			name:  "scalar then nested conflict keeps nested key flat",
			query: "a=1&a[b]=2",
			want:  map[string]any{"a": "1", "a[b]": "2"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, expandValues(values))
		})
	}
}
