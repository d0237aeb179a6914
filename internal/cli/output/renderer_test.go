package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stadata-x/stadatax/internal/tabular"
)

func testResult(t *testing.T) *tabular.Result {
	t.Helper()
	r, err := tabular.New(
		[]string{"ID", "Nama"},
		[][]string{{"11", "ACEH"}, {"12", "SUMATERA UTARA"}},
	)
	require.NoError(t, err)
	return r
}

func TestEffectiveMode_NonTTYDefaultsToMarkdown(t *testing.T) {
	r := NewRenderer(new(bytes.Buffer), new(bytes.Buffer), ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestEffectiveMode_ExplicitWins(t *testing.T) {
	r := NewRenderer(new(bytes.Buffer), new(bytes.Buffer), ModeJSON)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestTable_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, new(bytes.Buffer), ModeMarkdown)

	require.NoError(t, r.Table(testResult(t)))

	out := buf.String()
	assert.Contains(t, out, "| ID |")
	assert.Contains(t, out, "ACEH")
}

func TestTable_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, new(bytes.Buffer), ModeJSON)

	require.NoError(t, r.Table(testResult(t)))

	var records []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "ACEH", records[0]["Nama"])
}

func TestTable_CSV(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, new(bytes.Buffer), ModeCSV)

	require.NoError(t, r.Table(testResult(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Nama", lines[0])
}

func TestWarningGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Warning("token missing")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "token missing")
}
