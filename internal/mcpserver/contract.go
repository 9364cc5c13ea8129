package mcpserver

// CaptureSyntax describes the rapid-log text accepted by the capture tool.
const CaptureSyntax = `# Folio Capture Syntax

One entry per line. The bullet at the start of a line picks the entry type.

## Bullets

| Bullet                  | Entry                  |
|-------------------------|------------------------|
| ` + "`t `, `* `, `• `, `- [ ] `" + ` | open task              |
| ` + "`x `, `- [x] `" + `            | completed task         |
| ` + "`n `, `- `" + `                | note                   |
| ` + "`e `, `o `" + `                | event                  |
| no bullet               | open task              |

## Rules

1. **Sub-tasks** are task lines indented under a task. Only one level is
   allowed; deeper indentation is kept at the sub-task level.
2. **Event dates** follow the bullet as ` + "`YYYY-MM-DD`" + ` or ` + "`[YYYY-MM-DD]`" + `.
   An invalid date rejects the whole capture.
3. **Target collection** is, in order: the collection_id argument, the
   ` + "`collection:`" + ` key of a leading YAML front matter block, the first
   ` + "`# Heading`" + `. A named collection is matched ignoring case and created
   when missing. Without any of them entries are uncategorized.
4. **Limits**: task titles up to 500 characters, note and event text up to
   5000 characters.
5. Blank lines are ignored. A bullet without text is an error.
6. A capture is all or nothing: either every line is created or none is.

## Example

` + "```" + `
---
collection: Groceries
---
t oat milk
  t check the bio shelf
x eggs
n shop closes at 8
e 2026-05-14 farmers market
` + "```" + `
`
