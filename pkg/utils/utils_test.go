package utils

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"
)

// Styled badges always carry the one-cell padding, whatever color profile
// the terminal ends up with.
func TestColorizeLogs_StylesEveryLevel(t *testing.T) {
	lines := []string{
		"DEBU Bid accepted on auction 123",
		"INFO Server started on port 8080",
		"WARN Rate limit exceeded for client abc",
		"ERRO Error closing auction",
		"FATA Failed to start server",
	}
	out := ColorizeLogs(lines)
	for _, prefix := range []string{"DEBU", "INFO", "WARN", "ERRO", "FATA"} {
		found := false
		for _, line := range out {
			if strings.Contains(line, " "+prefix+" ") {
				found = true
			}
		}
		check.True(t, found)
	}
}

func TestColorizeLogs_LeavesStyledLinesAlone(t *testing.T) {
	styled := "\x1b[1mINFO\x1b[0m already styled"
	out := ColorizeLogs([]string{styled})
	check.Equal(t, styled, out[0])
}

func TestColorizeLogs_PlainLineUntouched(t *testing.T) {
	plain := "no level prefix here"
	out := ColorizeLogs([]string{plain})
	check.Equal(t, plain, out[0])
}
