package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/mcp"
	"github.com/hpungsan/pngme/internal/ops"
	"github.com/hpungsan/pngme/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	app := &cli.App{
		Name:    "pngme",
		Usage:   "Hide messages in PNG chunks",
		Version: Version,
		Commands: []*cli.Command{
			encodeCmd(db, cfg),
			decodeCmd(cfg),
			removeCmd(db, cfg),
			printCmd(cfg),
			exportCmd(cfg),
			importCmd(db, cfg),
			historyCmd(db),
			pruneCmd(db),
			serveCmd(db, cfg, log),
			mcpCmd(db, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// encodeCmd creates the encode command.
func encodeCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:        "encode",
		Usage:       "Append a message chunk to a PNG file (reads the message from stdin when omitted)",
		ArgsUsage:   "[--output <file>] <path> <chunk_type> [message] [output]",
		Description: "Flags must come before the positional arguments.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the result to this file instead of modifying <path>"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("path and chunk_type are required"))
			}
			if arg, ok := trailingFlag(c); ok {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("flags must come before arguments: %q", arg)))
			}

			input := ops.EncodeInput{
				Path:      c.Args().Get(0),
				ChunkType: c.Args().Get(1),
				Output:    c.String("output"),
			}

			switch {
			case c.NArg() >= 3:
				input.Message = c.Args().Get(2)
			case stdinHasData():
				msg, err := readStdin(cfg.MessageMaxBytes)
				if err != nil {
					return outputError(err)
				}
				input.Message = msg
			default:
				return outputError(errors.NewInvalidRequest("message is required (argument or stdin)"))
			}

			if input.Output == "" && c.NArg() >= 4 {
				input.Output = c.Args().Get(3)
			}

			output, err := ops.Encode(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// decodeCmd creates the decode command.
func decodeCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Print the message stored in the first chunk of a type",
		ArgsUsage: "<path> <chunk_type>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Aliases: []string{"r"}, Usage: "Print only the message text"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("path and chunk_type are required"))
			}

			output, err := ops.Decode(c.Context, cfg, ops.DecodeInput{
				Path:      c.Args().Get(0),
				ChunkType: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("raw") {
				_, err := fmt.Fprintln(os.Stdout, output.Message)
				return err
			}
			return outputJSON(output)
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove the first chunk of a type from a PNG file",
		ArgsUsage: "<path> <chunk_type>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("path and chunk_type are required"))
			}

			output, err := ops.Remove(c.Context, db, cfg, ops.RemoveInput{
				Path:      c.Args().Get(0),
				ChunkType: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// printCmd creates the print command. Several paths are inspected concurrently.
func printCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "print",
		Usage:     "List the chunks of one or more PNG files",
		ArgsUsage: "<path> [path...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}

			if c.NArg() == 1 {
				output, err := ops.Print(c.Context, cfg, ops.PrintInput{Path: c.Args().First()})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.PrintMany(c.Context, cfg, ops.PrintManyInput{Paths: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export the chunks of a PNG file to a JSONL file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Export file path (default: ~/.pngme/exports/<name>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}

			output, err := ops.Export(c.Context, cfg, ops.ExportInput{
				Path:   c.Args().First(),
				Output: c.String("output"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Append the chunks of a JSONL export file to a PNG file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Export file to read"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeAppend), Usage: "Import mode: append|skip-existing"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}

			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Path:   c.Args().First(),
				Source: c.String("source"),
				Mode:   ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}
			if len(output.Errors) > 0 && output.Imported == 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List journal entries, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Filter by PNG path"},
			&cli.StringFlag{Name: "op", Usage: "Filter by operation: encode|remove|import"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, db, ops.HistoryInput{
				Path:   c.String("path"),
				Op:     c.String("op"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// pruneCmd creates the prune command.
func pruneCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Permanently delete journal entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Filter by PNG path"},
			&cli.StringFlag{Name: "older-than", Usage: "Only prune entries older than N days (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PruneInput{Path: c.String("path")}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Prune(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web inspector",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 7466, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}

			srv, err := web.NewServer(db, cfg, Version, c.String("bind"), port, log)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server over stdio",
		Action: func(c *cli.Context) error {
			return runMCP(db, cfg, log)
		},
	}
}

// runMCP warns about unknown disabled tools/types and serves MCP over stdio.
func runMCP(db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) error {
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warnw("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warnw("unknown types in disabled_types", "types", unknown)
	}
	return mcp.Run(db, cfg, Version, log)
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	pErr, ok := errors.As(err)
	if !ok {
		return cli.Exit(err.Error(), 1)
	}
	msg := fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message)
	if cause, ok := errors.As(pErr.Cause); ok && pErr.Code != errors.ErrInternal {
		msg += fmt.Sprintf(": [%s] %s", cause.Code, cause.Message)
	}
	return cli.Exit(msg, 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most maxBytes from stdin, trimming one trailing newline.
// A non-positive maxBytes means no limit.
func readStdin(maxBytes int) (string, error) {
	var r io.Reader = os.Stdin
	if maxBytes > 0 {
		r = io.LimitReader(os.Stdin, int64(maxBytes)+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	s := strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
	if maxBytes > 0 && len(s) > maxBytes {
		return "", errors.NewMessageTooLarge(maxBytes, len(s))
	}
	return s, nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}

// trailingFlag reports a positional argument that names one of the
// command's own flags. Flag parsing stops at the first positional, so
// such an argument would otherwise be taken as a message or path.
func trailingFlag(c *cli.Context) (string, bool) {
	for _, arg := range c.Args().Slice() {
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		for _, f := range c.Command.Flags {
			if slices.Contains(f.Names(), name) {
				return arg, true
			}
		}
	}
	return "", false
}
