package mcpserver

// LoreFormatContract describes the canonical lore record structure that
// LLM consumers should follow when creating or updating records.
const LoreFormatContract = `# Laguz Lore Record Contract

Every lore record stored in Laguz follows this structure.

## Structure

` + "```" + `json
{
  "id": "01J9ZK3V8N0000000000000000",
  "state": "active",
  "file": "src/main.go",
  "location": { "startLine": 12, "endLine": 14 },
  "summary": "Retry loop rationale",
  "body": "The cap of 5 retries matches the upstream gateway timeout. See #ops and [[incident-42]].",
  "tags": ["ops"],
  "links": ["incident-42"],
  "categories": [],
  "author": "alice",
  "contentType": "markdown"
}
` + "```" + `

## Rules

1. **Records attach to a file and line range.** ` + "`" + `file` + "`" + ` is workspace-relative
   with forward slashes; ` + "`" + `startLine` + "`" + `/` + "`" + `endLine` + "`" + ` are 1-based and inclusive.
2. **Create vs update is decided by id.** Pass an existing id to update it;
   omit the id to create a new record. Ids are ULIDs assigned by the server.
3. **Omitted fields keep their current values** on update. To clear a field,
   set it to an explicit empty value.
4. **Line ranges follow edits automatically.** Do not rewrite a record just
   because its lines moved; the server relocates it.
5. **Records are never physically removed.** Archiving or deleting is a state
   transition (` + "`" + `active` + "`" + `, ` + "`" + `archived` + "`" + `, ` + "`" + `deleted` + "`" + `), so ids stay stable.
6. **Bodies are Markdown.** Inline ` + "`" + `#tags` + "`" + ` and ` + "`" + `[[wikilinks]]` + "`" + ` in the body
   are extracted into the record's tags and links on save.
7. **Summaries are one line.** They appear in editor decorations next to code.

## Example

Asking for the lore of ` + "`" + `src/retry.go` + "`" + ` before changing its backoff constants,
then recording a new decision:

1. ` + "`" + `list_lore_for_file` + "`" + ` with ` + "`" + `file: src/retry.go` + "`" + `
2. ` + "`" + `upsert_lore` + "`" + ` with ` + "`" + `file: src/retry.go` + "`" + `, ` + "`" + `startLine: 30` + "`" + `, ` + "`" + `endLine: 34` + "`" + `,
   ` + "`" + `summary: Backoff doubled after incident 57` + "`" + `
`
