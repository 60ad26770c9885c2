package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunnerFor_KnownLanguages(t *testing.T) {
	for _, lang := range []string{"py", "js", "ts", "go", "java", "c", "cpp", "php", "rs", "r", "f90", "d"} {
		r, ok := runnerFor(lang)
		assert.Truef(t, ok, "expected a runner for %q", lang)
		assert.NotEmpty(t, r.Filename)
		assert.NotEmpty(t, r.Command)
	}
}

func TestRunnerFor_UnknownLanguage(t *testing.T) {
	_, ok := runnerFor("cobol")
	assert.False(t, ok)
}
