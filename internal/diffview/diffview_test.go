package diffview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedEqual(t *testing.T) {
	assert.Empty(t, Unified("a.ts", "x\n", "x\n"))
}

func TestUnifiedSingleChange(t *testing.T) {
	before := "a\nb\nc\nd\ne\nf\ng\nh\n"
	after := "a\nb\nc\nd\nE\nf\ng\nh\n"

	want := strings.Join([]string{
		"--- a/src/a.test.ts",
		"+++ b/src/a.test.ts",
		"@@ -2,7 +2,7 @@",
		" b",
		" c",
		" d",
		"-e",
		"+E",
		" f",
		" g",
		" h",
		"",
	}, "\n")
	assert.Equal(t, want, Unified("src/a.test.ts", before, after))
}

func TestUnifiedInsertion(t *testing.T) {
	before := "import { a } from 'a';\n\ndescribe('x', () => {});\n"
	after := "import { a } from 'a';\nimport { b } from 'b';\n\ndescribe('x', () => {});\n"

	got := Unified("x.test.ts", before, after)
	assert.Contains(t, got, "@@ -1,3 +1,4 @@\n")
	assert.Contains(t, got, "+import { b } from 'b';\n")
}

func TestUnifiedSeparateHunks(t *testing.T) {
	var before, after []string
	for i := 0; i < 20; i++ {
		line := string(rune('a' + i))
		before = append(before, line)
		switch i {
		case 1, 18:
			after = append(after, strings.ToUpper(line))
		default:
			after = append(after, line)
		}
	}
	got := Unified("f.ts", strings.Join(before, "\n")+"\n", strings.Join(after, "\n")+"\n")
	assert.Equal(t, 2, strings.Count(got, "@@ -"))
	assert.Contains(t, got, "@@ -1,5 +1,5 @@\n")
	assert.Contains(t, got, "@@ -16,5 +16,5 @@\n")
}
