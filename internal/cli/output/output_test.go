package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
	assert.True(t, ValidMode("md"))
	assert.False(t, ValidMode("yaml"))
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit json on terminal", ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_NotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Header(t *testing.T) {
	var md bytes.Buffer
	NewRendererWithTTY(&md, &bytes.Buffer{}, false, ModeMarkdown).Header(2, "Columns")
	assert.Equal(t, "## Columns\n\n", md.String())

	var text bytes.Buffer
	NewRendererWithTTY(&text, &bytes.Buffer{}, false, ModeText).Header(2, "Columns")
	assert.Equal(t, "Columns\n", text.String())
}

func TestRenderer_Table(t *testing.T) {
	header := []string{"Name", "Kind"}
	rows := [][]string{{"user", "table"}, {"active_user", "view"}}

	var md bytes.Buffer
	NewRendererWithTTY(&md, &bytes.Buffer{}, false, ModeMarkdown).Table(header, rows)
	assert.Contains(t, md.String(), "| Name")
	assert.Contains(t, md.String(), "---")
	assert.Contains(t, md.String(), "active_user")

	var text bytes.Buffer
	NewRendererWithTTY(&text, &bytes.Buffer{}, false, ModeText).Table(header, rows)
	assert.Contains(t, text.String(), "┌")
	assert.Contains(t, text.String(), "active_user")
}

func TestRenderer_Messages(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeText)

	r.Success("saved")
	r.Muted("hint")
	r.Warning("careful")
	r.Error("failed")

	assert.Equal(t, "✓ saved\nhint\n", out.String())
	assert.Equal(t, "! careful\n✗ failed\n", errOut.String())
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"a": 1}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 1, got["a"])
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "**Type:** TEXT", FormatKeyValue("Type", "TEXT"))
}
