package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorMode(t *testing.T) {
	for input, want := range map[string]ColorMode{"": ColorAuto, "auto": ColorAuto, "always": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(input)
		require.NoError(t, err)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseColorMode("sometimes")
	assert.Error(t, err)
}

func TestResolveColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, ResolveColors(ColorAlways, false))
	assert.False(t, ResolveColors(ColorNever, true))
	assert.False(t, ResolveColors(ColorAuto, true))
}

func TestPrinterWithoutColors(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	p.Success("approved %s", "m-1")
	p.Error("denied")
	p.Header("Users")

	assert.Contains(t, out.String(), "[OK] approved m-1")
	assert.Contains(t, out.String(), "Users\n-----")
	assert.Equal(t, "[ERROR] denied\n", errOut.String())
	assert.Equal(t, "pending", p.Status("pending"))
}

func TestTableRender(t *testing.T) {
	var out bytes.Buffer
	table := NewTable(&out, []string{"id", "status"})
	table.AddRow("m-1", "pending")
	table.AddRow("m-2", "approved")

	require.NoError(t, table.Render())
	assert.Equal(t, 2, table.Len())
	assert.Contains(t, out.String(), "m-1")
	assert.Contains(t, out.String(), "approved")
}
