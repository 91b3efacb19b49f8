package mcpserver

// PageFormatContract describes the canonical Markdown page format that
// LLM consumers should follow when creating or updating pages.
const PageFormatContract = `# Tome Page Format Contract

Every Markdown page stored in a Tome vault SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL - filename stem is used otherwise
tags:                               # OPTIONAL - YAML list; used for filtering
  - tag-one
  - tag-two
image: map.png                      # OPTIONAL - infobox image (string or list)
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other pages (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use [[target#Section]] to link to a heading anchor.
` + "```" + `

## Rules

1. **Frontmatter is optional** but, when present, the ` + "`" + `---` + "`" + ` fences must
   be the first thing in the file (no leading blank lines).
2. **Duplicate frontmatter keys are an error.** The page is still listed,
   with the parse error attached, but its metadata is ignored.
3. **Wikilinks** use double brackets: ` + "`" + `[[Other Page]]` + "`" + `. The target is the
   filename stem (case-sensitive, no ` + "`" + `.md` + "`" + ` extension); a vault-relative
   path like ` + "`" + `[[lore/Dragons]]` + "`" + ` also works.
4. **Image embeds** use ` + "`" + `![[image.png]]` + "`" + ` or ` + "`" + `![[image.png|alt text]]` + "`" + `.
   Matching is by filename, case-insensitive.
5. **Spoilers** wrap text in double pipes: ` + "`" + `||hidden text||` + "`" + `.
6. **Inserts** transclude another page's body: ` + "`" + `{{insert: Page Name}}` + "`" + `,
   optionally with ` + "`" + `| title="..."` + "`" + `, ` + "`" + `| hidden` + "`" + `, ` + "`" + `| centered` + "`" + ` or
   ` + "`" + `| borderless` + "`" + ` attributes. Circular inserts render an error box.
7. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
8. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
tags:
  - location
image: riverton.png
---

# Riverton

A quiet town on the [[Silver River]].

## History

Founded by [[Alderman Voss|the first alderman]]. ||The founding charter
was forged.||

{{insert: Regional Climate | title="Climate"}}
` + "```" + `
`
