package output

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

type workflow struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Tags   []string `json:"tags"`
	Number int64    `json:"pipeline_number"`
	Actor  struct {
		Login string `json:"login"`
	} `json:"actor"`
}

func sample() []workflow {
	a := workflow{ID: "w-1", Name: "build", Status: "on_hold", Tags: []string{"x", "y"}, Number: 12}
	a.Actor.Login = "octo"
	b := workflow{ID: "w-2", Name: "deploy", Status: "success", Number: 13}
	return []workflow{a, b}
}

func cols() []Column[workflow] {
	return []Column[workflow]{
		Col("id", func(w workflow) any { return w.ID }),
		Col("name", func(w workflow) any { return w.Name }),
		Col("status", func(w workflow) any { return Status(w.Status) }),
		Col("tags", func(w workflow) any { return w.Tags }),
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, "yaml": FormatYAML, "table": FormatTable} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.True(t, clierrors.IsInvalid(err))
}

func TestList_Table(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: FormatTable, Out: &buf}
	require.NoError(t, List(p, sample(), cols()...))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ID")
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "On Hold")
	assert.Contains(t, lines[1], "x, y")
	assert.Contains(t, lines[2], "deploy")
	assert.Contains(t, lines[2], "-", "empty tags render as a dash")
}

func TestList_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, List(&Printer{Format: FormatTable, Out: &buf}, []workflow(nil), cols()...))
	assert.Equal(t, "No results.\n", buf.String())

	buf.Reset()
	require.NoError(t, List(&Printer{Format: FormatJSON, Out: &buf}, []workflow(nil), cols()...))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestList_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, List(&Printer{Format: FormatJSON, Out: &buf}, sample(), cols()...))
	assert.Contains(t, buf.String(), `"pipeline_number": 12`)
	assert.Contains(t, buf.String(), "\n  {", "output is indented")
}

func TestList_YAMLKeepsFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, List(&Printer{Format: FormatYAML, Out: &buf}, sample()[:1], cols()...))
	out := buf.String()
	assert.Less(t, strings.Index(out, "id:"), strings.Index(out, "name:"))
	assert.Less(t, strings.Index(out, "name:"), strings.Index(out, "status:"))
	assert.Contains(t, out, "pipeline_number: 12")
	assert.Contains(t, out, "login: octo")
}

func TestYAMLQuotesAmbiguousStrings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Record(&Printer{Format: FormatYAML, Out: &buf}, map[string]string{"a": "true", "b": "12", "c": "plain", "d": ""}))
	out := buf.String()
	assert.Contains(t, out, `a: "true"`)
	assert.Contains(t, out, `b: "12"`)
	assert.Contains(t, out, "c: plain")
	assert.Contains(t, out, `d: ""`)
}

func TestQuery(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: FormatTable, Query: "[?status=='success'].name", Out: &buf}
	require.NoError(t, List(p, sample(), cols()...))
	assert.Equal(t, "deploy\n", buf.String())

	buf.Reset()
	p = &Printer{Format: FormatJSON, Query: "[0].pipeline_number", Out: &buf}
	require.NoError(t, List(p, sample(), cols()...))
	assert.Equal(t, "12\n", buf.String())

	buf.Reset()
	p = &Printer{Format: FormatTable, Query: "[0].actor", Out: &buf}
	require.NoError(t, List(p, sample(), cols()...))
	assert.JSONEq(t, `{"login":"octo"}`, buf.String())

	p.Query = "[?"
	err := List(p, sample(), cols()...)
	assert.True(t, clierrors.IsInvalid(err))
}

func TestTemplate(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: FormatJSON, Template: `{{range .}}{{.name}}={{status .status}};{{end}}`, Out: &buf}
	require.NoError(t, List(p, sample(), cols()...))
	assert.Equal(t, "build=On Hold;deploy=Success;\n", buf.String())

	p.Template = "{{.missing"
	assert.True(t, clierrors.IsInvalid(List(p, sample(), cols()...)))
}

func TestTemplate_LargeIntegers(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Format: FormatTable, Template: "{{.job_number}} {{.pipeline_number}} {{.ratio}}", Out: &buf}
	require.NoError(t, p.Encode(map[string]any{
		"job_number":      int64(1234567),
		"pipeline_number": 12,
		"ratio":           0.25,
	}))
	assert.Equal(t, "1234567 12 0.25\n", buf.String())

	buf.Reset()
	p.Template = "{{range .}}{{.number}},{{end}}"
	require.NoError(t, p.Encode([]map[string]int64{{"number": 20000001}, {"number": 3}}))
	assert.Equal(t, "20000001,3,\n", buf.String())
}

func TestRecord_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Record(&Printer{Format: FormatTable, Out: &buf}, sample()[0]))
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "id:"))
	assert.Contains(t, out, "On Hold")
	assert.Contains(t, out, "tags:")
	assert.Contains(t, out, "x, y")
	assert.Contains(t, out, "actor.login:")
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "On Hold", Status("on_hold"))
	assert.Equal(t, "Not Run", Status("not_run"))
	assert.Equal(t, "Success", Status("success"))
	assert.Equal(t, "", Status(""))
}

func TestTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, "2024-03-01 11:30:00", Time(ts))
	assert.Equal(t, "", Time(time.Time{}))
	assert.Equal(t, "", TimePtr(nil))
	assert.Equal(t, "2024-03-01 11:30:00", TimePtr(&ts))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "just now", ago(10*time.Second))
	assert.Equal(t, "5m ago", ago(5*time.Minute))
	assert.Equal(t, "3h ago", ago(3*time.Hour))
	assert.Equal(t, "2d ago", ago(48*time.Hour))
	assert.Equal(t, "2mo ago", ago(61*24*time.Hour))
	assert.Equal(t, "1y ago", ago(400*24*time.Hour))
	assert.Equal(t, "", Ago(time.Time{}))
}

func TestFingerprint(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	authorized := string(ssh.MarshalAuthorizedKey(key))
	fp := Fingerprint(authorized)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"))
	assert.Equal(t, ssh.FingerprintSHA256(key), fp)

	assert.Equal(t, "", Fingerprint("not a key"))
}
