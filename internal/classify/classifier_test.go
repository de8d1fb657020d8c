package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PII(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"ssn with dashes", "my ssn is 123-45-6789"},
		{"ssn with spaces", "ssn 123 45 6789 on file"},
		{"email", "reach me at jane.doe@example.com please"},
		{"phone with parens", "call (415) 555-0138 after 5"},
		{"phone with dots", "cell is 415.555.0138"},
		{"street address", "I live at 1600 Pennsylvania Avenue"},
		{"dob", "Date of Birth: 04/12/1981"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.text)
			assert.True(t, c.ContainsPII, "expected PII in %q", tc.text)
			assert.True(t, c.RequiresEncryption)
			assert.Equal(t, LevelConfidential, c.Level)
		})
	}
}

func TestClassify_Medical(t *testing.T) {
	c := Classify("the doctor ordered an MRI after the concussion")
	assert.True(t, c.ContainsMedicalInfo)
	assert.False(t, c.ContainsPII)
	assert.False(t, c.ContainsPHI)
	assert.Equal(t, LevelConfidential, c.Level)
	assert.True(t, c.RequiresEncryption)
}

func TestClassify_PHI(t *testing.T) {
	c := Classify("patient Jane (jane@example.com) was diagnosed with whiplash")
	require.True(t, c.ContainsPII)
	require.True(t, c.ContainsMedicalInfo)
	assert.True(t, c.ContainsPHI)
	assert.Equal(t, LevelRestricted, c.Level)
	assert.True(t, c.RequiresEncryption)
}

// PHI is defined as the conjunction of PII and medical context; the
// classifier must never set it on its own.
func TestClassify_PHIInvariant(t *testing.T) {
	inputs := []string{
		"",
		"hello there",
		"my email is bob@example.com",
		"a fractured wrist",
		"bob@example.com broke his wrist in surgery",
		"ssn 123-45-6789 and a herniated disc",
	}
	for _, text := range inputs {
		c := Classify(text)
		if c.ContainsPHI {
			assert.True(t, c.ContainsPII, "PHI without PII for %q", text)
			assert.True(t, c.ContainsMedicalInfo, "PHI without medical info for %q", text)
		}
		assert.Equal(t, c.ContainsPHI, c.Level == LevelRestricted,
			"restricted iff PHI violated for %q", text)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	text := "claimant at 12 Oak Street, diagnosed with PTSD, reachable at 555-123-4567"
	first := Classify(text)
	second := Classify(text)
	assert.Equal(t, first, second)
}

func TestClassify_Plain(t *testing.T) {
	c := Classify("thanks, talk to you tomorrow")
	assert.False(t, c.ContainsPII)
	assert.False(t, c.ContainsMedicalInfo)
	assert.False(t, c.ContainsPHI)
	assert.Equal(t, LevelInternal, c.Level)
	assert.False(t, c.RequiresEncryption)
}

func TestClassify_Empty(t *testing.T) {
	c := Classify("")
	assert.Equal(t, LevelPublic, c.Level)
	assert.False(t, c.RequiresEncryption)
}

func TestClassify_ProhibitedContent(t *testing.T) {
	c := Classify("Don't worry, you will win this case, I guarantee a settlement.")
	assert.True(t, c.ProhibitedContent)

	c = Classify("An attorney will review your information and contact you.")
	assert.False(t, c.ProhibitedContent)
}

func TestMostRestrictive(t *testing.T) {
	c := MostRestrictive()
	assert.Equal(t, LevelRestricted, c.Level)
	assert.True(t, c.ContainsPHI)
	assert.True(t, c.RequiresEncryption)
}
