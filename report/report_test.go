package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const template = "<html><body>\n" + Placeholder + "\n</body></html>"

func TestMerge(t *testing.T) {
	html := Merge(template, []byte("{\"a\":1}\n[1]"), []byte("{\"b\":2}"))

	assert.Equal(t, 2, strings.Count(html, `<script type="data" compressed="false">`))
	assert.Equal(t, 1, strings.Count(html, Placeholder), "placeholder is kept for later inserts")

	first := strings.Index(html, "{\"a\":1}\n[1]")
	second := strings.Index(html, "{\"b\":2}")
	require.Positive(t, first)
	require.Positive(t, second)
	assert.Less(t, first, second, "files keep their order")

	assert.Contains(t, html, "<script type=\"data\" compressed=\"false\">\n{\"b\":2}\n</script>\n"+Placeholder)
	assert.True(t, strings.HasPrefix(html, "<html><body>\n<script"))
	assert.True(t, strings.HasSuffix(html, Placeholder+"\n</body></html>"))
}

func TestMergeNoFiles(t *testing.T) {
	assert.Equal(t, template, Merge(template))
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(tpl, []byte(template), 0o644))

	var files []string
	for _, name := range []string{"pebble", "mdbx", "leveldb"} {
		path := filepath.Join(dir, name+".jsonl")
		require.NoError(t, os.WriteFile(path, []byte(`{"backend":"`+name+`"}`), 0o644))
		files = append(files, path)
	}

	out := filepath.Join(dir, "out.html")
	require.NoError(t, Build(tpl, files, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)

	assert.Equal(t, 3, strings.Count(html, "<script type=\"data\""))
	p := strings.Index(html, `"pebble"`)
	m := strings.Index(html, `"mdbx"`)
	l := strings.Index(html, `"leveldb"`)
	assert.True(t, p < m && m < l, "blocks appear in argument order")
}

func TestBuildMissingInput(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(tpl, []byte(template), 0o644))

	require.Error(t, Build(filepath.Join(dir, "nope.html"), nil, filepath.Join(dir, "out.html")))
	require.Error(t, Build(tpl, []string{filepath.Join(dir, "nope.jsonl")}, filepath.Join(dir, "out.html")))
}

func TestTemplatePath(t *testing.T) {
	t.Setenv(TemplateEnv, "")
	assert.Equal(t, DefaultTemplatePath, TemplatePath())

	t.Setenv(TemplateEnv, "/srv/report/index.html")
	assert.Equal(t, "/srv/report/index.html", TemplatePath())
}
