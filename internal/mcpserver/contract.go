package mcpserver

// NoteFormatContract describes the note fields that LLM consumers should
// follow when creating or updating notes.
const NoteFormatContract = `# Notely Note Format Contract

Every note stored in Notely has the following shape.

## Fields

| field       | type     | notes                                         |
|-------------|----------|-----------------------------------------------|
| id          | string   | assigned by the server, never supplied        |
| title       | string   | REQUIRED, must not be blank                   |
| content     | string   | REQUIRED, must not be blank, plain text or Markdown |
| tags        | string[] | OPTIONAL, each tag non-blank                  |
| is_favorite | bool     | toggled with the toggle_favorite tool         |
| summary     | string   | OPTIONAL, set by summarize_note with save=true |
| created_at  | RFC 3339 | assigned on creation                          |
| updated_at  | RFC 3339 | bumped on every change                        |

## Rules

1. **Title and content are required.** Whitespace-only values are rejected.
2. **Tags** are passed to tools as a comma-separated string
   (` + "`" + `work, project-x` + "`" + `). Prefer lowercase, kebab-case tags.
3. **Updates are partial.** Omitted arguments keep their current value.
   Passing an empty ` + "`" + `tags` + "`" + ` argument clears all tags.
4. **Search** is a case-insensitive substring match over title, content and tags.
5. **Summaries** need at least 10 characters of content. Short notes cannot
   be summarized.
6. Notes created from a summary carry the ` + "`" + `ai-summary` + "`" + ` tag.

## Example

` + "```" + `json
{
  "title": "Weekly standup 2025-01-20",
  "content": "Attendees: Alice, Bob. The release slipped a week. Bob owns the roadmap.",
  "tags": ["meeting-notes", "project-x"]
}
` + "```" + `
`
