package assembler_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/arcbyte/let/internal/filetest"
	"github.com/arcbyte/let/lang/assembler"
	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/parser"
	"github.com/stretchr/testify/require"
)

var testUpdateGoldenTests = flag.Bool("test.update-golden-tests", false, "If set, replace expected assembler golden results with actual results.")

// TestGolden compiles or assembles each testdata/in file and diffs its
// disassembled text (or, on failure, its error message) against the
// matching testdata/out golden file, the way the teacher's lexer,
// parser and resolver packages check their own fixtures.
func TestGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, ext := range []string{".let", ".asm"} {
		for _, fi := range filetest.SourceFiles(t, srcDir, ext) {
			t.Run(fi.Name(), func(t *testing.T) {
				src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
				require.NoError(t, err)

				var m *bytecode.Module
				var cerr error
				if ext == ".let" {
					m, cerr = parser.Compile(src)
				} else {
					m, cerr = assembler.Assemble(src)
				}

				var out, errOut string
				if cerr != nil {
					errOut = cerr.Error()
				} else {
					text, derr := assembler.Disassemble(m)
					require.NoError(t, derr)
					out = text
				}

				filetest.DiffOutput(t, fi, out, resultDir, testUpdateGoldenTests)
				filetest.DiffErrors(t, fi, errOut, resultDir, testUpdateGoldenTests)
			})
		}
	}
}
