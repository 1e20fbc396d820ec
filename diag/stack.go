package diag

import (
	"fmt"
	"strings"

	"github.com/donecollectively/stellar-contracts-sub001/ledger"
)

const (
	corePrefix   = "__core__"
	stdlibPrefix = "__helios__"
	modulePrefix = "__module__"
)

// noise frames are engine helpers with no meaning to a contract author.
var noisePrefixes = []string{
	"__helios__common__",
	"__helios__error",
	"<anonymous>",
}

// TranslateFrame renders one script-engine frame readably and reports
// whether it should be shown. A frame may carry a location after " @ ".
//
//	__core__addInteger      -> builtin addInteger
//	__helios__value__get    -> value.get
//	__module__auth__check   -> auth::check
func TranslateFrame(frame string) (string, bool) {
	name, loc, _ := strings.Cut(strings.TrimSpace(frame), " @ ")
	if name == "" {
		return "", false
	}
	for _, p := range noisePrefixes {
		if strings.HasPrefix(name, p) {
			return "", false
		}
	}

	switch {
	case strings.HasPrefix(name, corePrefix):
		name = "builtin " + strings.TrimPrefix(name, corePrefix)
	case strings.HasPrefix(name, stdlibPrefix):
		name = strings.ReplaceAll(strings.TrimPrefix(name, stdlibPrefix), "__", ".")
	case strings.HasPrefix(name, modulePrefix):
		rest := strings.TrimPrefix(name, modulePrefix)
		if mod, fn, ok := strings.Cut(rest, "__"); ok {
			name = mod + "::" + strings.ReplaceAll(fn, "__", ".")
		} else {
			name = rest
		}
	}
	if loc != "" {
		return fmt.Sprintf("%s (%s)", name, loc), true
	}
	return name, true
}

// RenderFailureStack formats a validation failure: the message, the failing
// redeemer, the translated stack innermost first, then the script's logs.
func RenderFailureStack(ve *ledger.ValidationError) string {
	if ve == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "script failure: %s\n", ve.Message)
	fmt.Fprintf(&sb, "  in %s[%d] script %s\n", ve.Purpose, ve.Index, ve.ScriptHash.Hex())
	for i := len(ve.Stack) - 1; i >= 0; i-- {
		if f, ok := TranslateFrame(ve.Stack[i]); ok {
			fmt.Fprintf(&sb, "  at %s\n", f)
		}
	}
	if len(ve.Logs) > 0 {
		sb.WriteString("  script logs:\n")
		for _, l := range ve.Logs {
			fmt.Fprintf(&sb, "    | %s\n", l)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
