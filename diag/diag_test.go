package diag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

var _ ledger.ScriptLogger = (*ConsoleLogger)(nil)

func observed() (*ConsoleLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewConsoleLogger(zap.New(core)), logs
}

func TestConsoleLogger_FlushGroupsLines(t *testing.T) {
	c, logs := observed()
	c.Print("first\nsecond")
	c.Logf("third %d", 3)
	c.LogPrint("trace")
	assert.Equal(t, "  | trace", c.LastMessage())
	assert.Len(t, c.Pending(), 4)

	c.Flush()
	assert.Empty(t, c.Pending())

	entries := logs.FilterMessage("diagnostics").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "first\nsecond\nthird 3\n  | trace", entries[0].ContextMap()["text"])
}

func TestConsoleLogger_ErrorLevel(t *testing.T) {
	c, logs := observed()
	c.Print("context")
	c.Error("it broke")
	c.Flush()

	entries := logs.FilterMessage("diagnostics").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["text"], "ERROR: it broke")

	// error flag clears with the flush
	c.Print("later")
	c.Flush()
	assert.Equal(t, zapcore.InfoLevel, logs.FilterMessage("diagnostics").All()[1].Level)
}

func TestConsoleLogger_FlushEmptyIsSilent(t *testing.T) {
	c, logs := observed()
	c.Flush()
	assert.Zero(t, logs.Len())
}

func TestConsoleLogger_FlushError(t *testing.T) {
	c, logs := observed()
	c.Print("dump")
	c.FlushError("build failed")

	entries := logs.FilterMessage("build failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "dump", entries[0].ContextMap()["text"])
}

func TestConsoleLogger_HistoryAndReset(t *testing.T) {
	c, _ := observed()
	c.Print("a")
	c.Flush()
	c.Print("b")
	assert.Equal(t, []string{"a", "b"}, c.History())

	c.Reset("next tx")
	assert.Empty(t, c.History())
	assert.Empty(t, c.Pending())
	assert.Empty(t, c.LastMessage())
}

func TestNewConsoleLogger_NilLogger(t *testing.T) {
	c := NewConsoleLogger(nil)
	c.Print("x")
	c.Flush()
}

func TestTranslateFrame(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
		show bool
	}{
		{"__core__addInteger", "builtin addInteger", true},
		{"__helios__value__get", "value.get", true},
		{"__helios__tx__outputs__filter", "tx.outputs.filter", true},
		{"__module__auth__check", "auth::check", true},
		{"__module__auth__Charter__validate @ auth.hl:12:3", "auth::Charter.validate (auth.hl:12:3)", true},
		{"main @ contract.hl:1:1", "main (contract.hl:1:1)", true},
		{"__helios__common__unBoolData", "", false},
		{"<anonymous>", "", false},
		{"   ", "", false},
	} {
		got, ok := TranslateFrame(tc.in)
		assert.Equal(t, tc.show, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestRenderFailureStack(t *testing.T) {
	ve := &ledger.ValidationError{
		Message: "charter must be present",
		Purpose: ledger.Minting,
		Index:   1,
		Logs:    []string{"checking charter"},
		Stack: []string{
			"main @ minter.hl:3:1",
			"__helios__common__assert",
			"__module__minter__requireCharter @ minter.hl:40:5",
		},
	}
	out := RenderFailureStack(ve)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "script failure: charter must be present", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  in minting[1] script "))
	assert.Equal(t, "  at minter::requireCharter (minter.hl:40:5)", lines[2], "innermost first")
	assert.Equal(t, "  at main (minter.hl:3:1)", lines[3])
	assert.Equal(t, "  script logs:", lines[4])
	assert.Equal(t, "    | checking charter", lines[5])
	assert.NotContains(t, out, "common")

	assert.Empty(t, RenderFailureStack(nil))
}
