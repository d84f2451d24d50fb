package config

// defaultRules is the built-in rule set: the IdGenerator migration of entity
// factories plus the Result wrapping of resolved repository mocks.
const defaultRules = `
roots:
  - src
suffixes:
  - .test.ts
  - .test.tsx
skip_dirs:
  - node_modules
  - .git
  - dist
  - coverage
suite_entries:
  - "describe("
payloads: ""
logging:
  level: warn

imports:
  - name: IdGenerator
    statement: "import { IdGenerator } from '@domain/types/id-generator.types';"
    match: "import { IdGenerator }"
    require_any:
      - "AutomationVariables.create("
      - "StorageSyncConfig.create("
      - "AutomationResult.create("
      - "SyncResult.create("
  - name: Result
    statement: "import { Result } from '@domain/values/result.value';"
    match: "import { Result }"
    require_any:
      - ".mockResolvedValue("

declarations:
  - name: mockIdGenerator
    match: "const mockIdGenerator"
    anchor: before-suite
    require_any:
      - "AutomationVariables.create("
      - "StorageSyncConfig.create("
      - "AutomationResult.create("
      - "SyncResult.create("
    template: |
      // Mock IdGenerator
      const mockIdGenerator: IdGenerator = {
        generate: jest.fn(() => 'mock-id-123'),
      };

calls:
  - name: inject-id-generator
    action: inject
    marker: ", mockIdGenerator"
    starts:
      - "AutomationVariables.create("
      - "StorageSyncConfig.create("
      - "AutomationResult.create("
      - "SyncResult.create("
  - name: wrap-resolved-result
    action: wrap
    wrapper: "Result.success"
    marker: "Result."
    starts:
      - ".mockResolvedValue("
`
