package mcpserver

// DocumentFormat describes the content document format that the loader
// understands, for LLM clients reading or drafting records.
const DocumentFormat = `# Content Document Format

Every content file is a Markdown document with an optional header block.

## Structure

` + "```" + `markdown
---
title: "Example Title"       # string; quotes are optional
order: 3                     # number; records sort ascending by order
published: false             # boolean; false hides the record
summary: >-
  Folded text. Lines of one paragraph
  are joined with spaces.

  A blank line starts a new paragraph.
notes: |
  Literal text keeps
  every line break.
---

Body text in standard Markdown, preserved verbatim.
` + "```" + `

## Rules

1. **The header is optional.** When present, the ` + "`" + `---` + "`" + ` line must be the
   first line of the file. The next ` + "`" + `---` + "`" + ` line closes it.
2. **One key per line**, written as ` + "`" + `key: value` + "`" + `. Only the first colon
   separates key from value, so values may contain colons (URLs, times).
3. **Values are scalars.** ` + "`" + `true` + "`" + ` and ` + "`" + `false` + "`" + ` are booleans, plain numbers
   are numbers, everything else is a string. Quote a value to keep it a string.
4. **Multi-line values** use ` + "`" + `>` + "`" + ` or ` + "`" + `>-` + "`" + ` (folded), ` + "`" + `|` + "`" + ` or ` + "`" + `|-` + "`" + ` (literal),
   or a quoted string that closes on a later line. Continuation lines are
   indented.
5. **Not supported:** lists, nested maps, anchors and flow collections. Such
   lines are skipped.
6. **published** defaults to true. Only the boolean ` + "`" + `false` + "`" + ` hides a record.
7. **order** is optional. Records without it come after all ordered records,
   in file-list order.
8. **Filenames** may carry a date prefix, ` + "`" + `YYYY-MM-DD-slug.md` + "`" + `. The prefix
   becomes the record date and the rest its slug.
9. **Images** in the ` + "`" + `image` + "`" + ` field may be a bare filename (served from
   ` + "`" + `images/uploads/` + "`" + `), a site path starting with ` + "`" + `/` + "`" + ` or an absolute URL.

## Example

` + "```" + `markdown
---
title: Chiang Mai market trends
order: 1
image: trends.jpg
summary: >-
  Prices in the old city rose
  again this quarter.
---

# Market trends

Rising demand for condos near Nimman.
` + "```" + `
`
