package rewrite

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var (
	idGeneratorImport = Ensure{
		Name:  "IdGenerator",
		Match: "import { IdGenerator }",
		Body:  []string{"import { IdGenerator } from '@domain/types/id-generator.types';"},
	}
	mockIdGeneratorDecl = Ensure{
		Name:   "mockIdGenerator",
		Match:  "const mockIdGenerator",
		Anchor: AnchorBeforeSuite,
		Body: []string{
			"// Mock IdGenerator",
			"const mockIdGenerator: IdGenerator = {",
			"  generate: jest.fn(() => 'mock-id-123'),",
			"};",
		},
	}
	suiteEntries = []string{"describe("}
)

func TestEnsureImport(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
		added bool
	}{
		{
			name: "after the last import",
			lines: []string{
				"import { a } from 'a';",
				"import { b } from 'b';",
				"import { c } from 'c';",
				"",
				"describe('x', () => {});",
			},
			want: []string{
				"import { a } from 'a';",
				"import { b } from 'b';",
				"import { c } from 'c';",
				"import { IdGenerator } from '@domain/types/id-generator.types';",
				"",
				"describe('x', () => {});",
			},
			added: true,
		},
		{
			name: "after a multi-line import",
			lines: []string{
				"import {",
				"  a,",
				"  b,",
				"} from 'ab';",
				"const x = 1;",
			},
			want: []string{
				"import {",
				"  a,",
				"  b,",
				"} from 'ab';",
				"import { IdGenerator } from '@domain/types/id-generator.types';",
				"const x = 1;",
			},
			added: true,
		},
		{
			name:  "present with different spacing",
			lines: []string{"import {IdGenerator} from '@domain/types/id-generator.types'", "describe('x', () => {});"},
			want:  []string{"import {IdGenerator} from '@domain/types/id-generator.types'", "describe('x', () => {});"},
		},
		{
			name: "no imports, before the suite",
			lines: []string{
				"// header",
				"describe('x', () => {});",
			},
			want: []string{
				"// header",
				"import { IdGenerator } from '@domain/types/id-generator.types';",
				"",
				"describe('x', () => {});",
			},
			added: true,
		},
		{
			name:  "no imports and no suite, end of file",
			lines: []string{"const x = 1;", ""},
			want:  []string{"const x = 1;", "import { IdGenerator } from '@domain/types/id-generator.types';", ""},
			added: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, added := EnsureImport(tt.lines, idGeneratorImport, suiteEntries)
			assert.Equal(t, tt.added, added)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("EnsureImport mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnsureImportLandsOnLineFour(t *testing.T) {
	lines := []string{
		"import { a } from 'a';",
		"import { b } from 'b';",
		"import { c } from 'c';",
		"",
		"describe('x', () => {});",
	}
	got, added := EnsureImport(lines, idGeneratorImport, suiteEntries)
	assert.True(t, added)
	assert.Equal(t, idGeneratorImport.Body[0], got[3])
}

func TestEnsureDeclaration(t *testing.T) {
	t.Run("before the suite", func(t *testing.T) {
		lines := []string{
			"import { IdGenerator } from '@domain/types/id-generator.types';",
			"",
			"describe('x', () => {});",
		}
		got, added := EnsureDeclaration(lines, mockIdGeneratorDecl, suiteEntries)
		assert.True(t, added)
		want := []string{
			"import { IdGenerator } from '@domain/types/id-generator.types';",
			"",
			"// Mock IdGenerator",
			"const mockIdGenerator: IdGenerator = {",
			"  generate: jest.fn(() => 'mock-id-123'),",
			"};",
			"",
			"describe('x', () => {});",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("EnsureDeclaration mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no suite falls back to after imports", func(t *testing.T) {
		lines := []string{"import { a } from 'a';", "test('x', () => {});"}
		got, added := EnsureDeclaration(lines, mockIdGeneratorDecl, suiteEntries)
		assert.True(t, added)
		assert.Equal(t, "// Mock IdGenerator", got[1])
		assert.Equal(t, "test('x', () => {});", got[len(got)-1])
	})

	t.Run("already declared", func(t *testing.T) {
		lines := []string{"const mockIdGenerator = { generate: jest.fn() };", "describe('x', () => {});"}
		got, added := EnsureDeclaration(lines, mockIdGeneratorDecl, suiteEntries)
		assert.False(t, added)
		assert.Equal(t, lines, got)
	})
}
