package gitmodules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "empty",
			raw:  "",
			want: map[string]string{},
		},
		{
			name: "basic",
			raw: "[submodule \"dummy\"]\n" +
				"  path = dummy\n" +
				"  url = http://example.com/dummy/.git\n",
			want: map[string]string{"dummy": "http://example.com/dummy/.git"},
		},
		{
			name: "multiple",
			raw: "[submodule \"foo\"]\n" +
				"  path = foo\n" +
				"  url = http://example.com/foo/.git\n" +
				"\n" +
				"[submodule \"bar\"]\n" +
				"  path = bar\n" +
				"  url = http://example.com/bar/.git\n",
			want: map[string]string{
				"foo": "http://example.com/foo/.git",
				"bar": "http://example.com/bar/.git",
			},
		},
		{
			name: "url before path",
			raw: "[submodule \"foo\"]\n" +
				"\turl = git://example.com/foo\n" +
				"\tpath = ext/foo\n",
			want: map[string]string{"ext/foo": "git://example.com/foo"},
		},
		{
			name: "malformed header merges into the locked section",
			raw: "[submodule \"foo\"]\n" +
				"  path = foo\n" +
				"  url = http://example.com/foo/.git\n" +
				"submodule \"bar\"]\n" +
				"  path = bar\n" +
				"  url = http://example.com/bar/.git\n" +
				"\n" +
				"[submodule \"baz\"]\n" +
				"  path = baz=baz\n" +
				"  url = http://example.com/baz/.git\n",
			want: map[string]string{
				"foo":     "http://example.com/foo/.git",
				"baz=baz": "http://example.com/baz/.git",
			},
		},
		{
			name: "stray lines before any header",
			raw: "garbage\n" +
				"path = loose\n" +
				"url = http://example.com/loose\n",
			want: map[string]string{"loose": "http://example.com/loose"},
		},
		{
			name: "incomplete section",
			raw: "[submodule \"foo\"]\n" +
				"  path = foo\n",
			want: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	tests := []map[string]string{
		{},
		{"ext/import1": "http://models.example.com/w/import1"},
		{
			"a":     "/srv/git/a",
			"b/c/d": "git://example.com/d",
			"e=f":   "https://example.com/e.git",
		},
	}
	for i, modules := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			assert.Equal(t, modules, Parse(Format(modules)))
		})
	}
}
