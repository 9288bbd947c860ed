package mcp

import "github.com/mark3labs/mcp-go/mcp"

var pngEncodeToolDef = mcp.NewTool("png_encode",
	mcp.WithDescription("Hide a text message in a PNG file by appending a chunk with the given 4-letter type code. "+
		"The file is modified in place unless output is given."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to an existing .png file")),
	mcp.WithString("chunk_type", mcp.Required(), mcp.Description("4 ASCII letters, third letter uppercase (e.g. RuSt)")),
	mcp.WithString("message", mcp.Required(), mcp.Description("Text to store in the chunk")),
	mcp.WithString("output", mcp.Description("Write the result to this .png file instead of modifying path")),
	mcp.WithDestructiveHintAnnotation(false),
)

var pngDecodeToolDef = mcp.NewTool("png_decode",
	mcp.WithDescription("Read the message stored in the first chunk with the given type code."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .png file")),
	mcp.WithString("chunk_type", mcp.Required(), mcp.Description("Chunk type code to look up")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var pngRemoveToolDef = mcp.NewTool("png_remove",
	mcp.WithDescription("Remove the first chunk with the given type code and rewrite the file. "+
		"The removed chunk is kept in the journal."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .png file")),
	mcp.WithString("chunk_type", mcp.Required(), mcp.Description("Chunk type code to remove")),
	mcp.WithDestructiveHintAnnotation(true),
)

var pngPrintToolDef = mcp.NewTool("png_print",
	mcp.WithDescription("List the header and every chunk of one or more PNG files: type, length, CRC, "+
		"type properties and text payload (null when not UTF-8)."),
	mcp.WithString("path", mcp.Description("Path to a .png file")),
	mcp.WithArray("paths", mcp.Description("Several .png paths, printed concurrently (max 50)"), mcp.WithStringItems()),
	mcp.WithReadOnlyHintAnnotation(true),
)

var pngExportToolDef = mcp.NewTool("png_export",
	mcp.WithDescription("Export the chunks of a PNG file to a JSONL file (header line plus one base64 record per chunk)."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .png file")),
	mcp.WithString("output", mcp.Description("Destination .jsonl file (default: ~/.pngme/exports/<name>-<timestamp>.jsonl)")),
)

var pngImportToolDef = mcp.NewTool("png_import",
	mcp.WithDescription("Append the chunks of a JSONL export file to a PNG file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Target .png file")),
	mcp.WithString("source", mcp.Required(), mcp.Description("Export .jsonl file")),
	mcp.WithString("mode",
		mcp.Description("append: all records, any bad record aborts; skip-existing: skip bad records and types already present"),
		mcp.Enum("append", "skip-existing"),
	),
)

var journalHistoryToolDef = mcp.NewTool("journal_history",
	mcp.WithDescription("List journal entries of encode, remove and import operations, newest first."),
	mcp.WithString("path", mcp.Description("Only entries for this file")),
	mcp.WithString("op", mcp.Description("Only entries for this operation"), mcp.Enum("encode", "remove", "import")),
	mcp.WithNumber("limit", mcp.Description("Max entries (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Entries to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var journalPruneToolDef = mcp.NewTool("journal_prune",
	mcp.WithDescription("Permanently delete journal entries."),
	mcp.WithString("path", mcp.Description("Only entries for this file")),
	mcp.WithNumber("older_than_days", mcp.Description("Only entries created more than N days ago")),
	mcp.WithDestructiveHintAnnotation(true),
)
