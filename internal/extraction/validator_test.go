package extraction

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ShortTextIsRejected(t *testing.T) {
	for _, text := range []string{"", " ", "\n\t\n", "John", "   123456789   "} {
		t.Run(text, func(t *testing.T) {
			out := Validate(text, "DOCX")
			assert.False(t, out.Valid)
			require.NotEmpty(t, out.Issues)
			assert.Contains(t, out.Issues[0], "too little text")
			assert.True(t, strings.HasPrefix(out.Issues[0], "DOCX"))
		})
	}
}

func TestValidate_PrintableTextIsAccepted(t *testing.T) {
	tests := []string{
		"John Doe — VP Engineering",
		"Jane Smith\nSenior Recruiter\tAcme Corp",
		"Führungskraft mit 15 Jahren Erfahrung in München",
		"0123456789",
		"Résumé: Director of Product, 2019–2024",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			out := Validate(text, "PDF")
			assert.True(t, out.Valid, "issues: %v", out.Issues)
			assert.Empty(t, out.Issues)
		})
	}
}

func TestValidate_ValidOutcomeHasEmptyIssueList(t *testing.T) {
	out := Validate("John Doe — VP Engineering", "DOCX")
	require.NotNil(t, out.Issues)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isValid":true,"issues":[]}`, string(b))
}

func TestValidate_GarbageRatio(t *testing.T) {
	readable := strings.Repeat("a", 90)

	out := Validate(readable+strings.Repeat("\x01", 10), "PDF")
	assert.True(t, out.Valid, "exactly 10%% garbage is tolerated: %v", out.Issues)

	out = Validate(readable+strings.Repeat("\x01", 11), "PDF")
	assert.False(t, out.Valid)
	assert.Contains(t, strings.Join(out.Issues, "\n"), "unreadable characters")

	out = Validate(readable+strings.Repeat("\xff", 40), "PDF")
	assert.False(t, out.Valid, "invalid UTF-8 counts as garbage")
}

func TestValidate_Artifacts(t *testing.T) {
	base := "Experienced engineering leader "
	tests := []struct {
		name string
		text string
		want string
	}{
		{"null bytes", base + "\x00\x00\x00", "null bytes"},
		{"replacement runs", base + "\uFFFD\uFFFD\uFFFD", "undecodable"},
		{"pdf header", "%PDF-1.7 " + base, "PDF header"},
		{"pdf stream", base + " endstream", "stream markers"},
		{"zip header", "PK\x03\x04" + base, "ZIP header"},
		{"content types", base + "[Content_Types].xml", "ZIP container"},
		{"wordml", base + `<w:t>leak</w:t>`, "WordprocessingML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Validate(tt.text, "DOCX")
			assert.False(t, out.Valid)
			assert.Contains(t, strings.Join(out.Issues, "\n"), tt.want)
		})
	}
}

func TestValidate_IssuesAreOrderedAndDeterministic(t *testing.T) {
	text := "\x00\x00\x01"
	first := Validate(text, "PDF")
	require.Len(t, first.Issues, 3)
	assert.Contains(t, first.Issues[0], "too little text")
	assert.Contains(t, first.Issues[1], "unreadable")
	assert.Contains(t, first.Issues[2], "null bytes")

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Validate(text, "PDF"))
	}
}
