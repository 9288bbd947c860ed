package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
)

// TestFullWorkflow exercises the complete message lifecycle:
// encode → decode → print → export → remove → decode (not found) → import → history → prune
func TestFullWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	cfg := config.DefaultConfig()
	path := writeTestPNG(t, tmpDir, "dice.png", testChunks()...)

	// 1. Encode
	encodeOut, err := Encode(ctx, database, cfg, EncodeInput{Path: path, ChunkType: "RuSt", Message: secretMessage})
	require.NoError(t, err)
	require.Equal(t, 4, encodeOut.Chunks)

	// 2. Decode
	decodeOut, err := Decode(ctx, cfg, DecodeInput{Path: path, ChunkType: "RuSt"})
	require.NoError(t, err)
	require.Equal(t, secretMessage, decodeOut.Message)

	// 3. Print
	printOut, err := Print(ctx, cfg, PrintInput{Path: path})
	require.NoError(t, err)
	require.Len(t, printOut.Chunks, 4)
	require.Equal(t, "RuSt", printOut.Chunks[3].ChunkType)

	// 4. Export
	exportPath := filepath.Join(tmpDir, "dice.jsonl")
	exportOut, err := Export(ctx, cfg, ExportInput{Path: path, Output: exportPath})
	require.NoError(t, err)
	require.Equal(t, 4, exportOut.Count)

	// 5. Remove
	removeOut, err := Remove(ctx, database, cfg, RemoveInput{Path: path, ChunkType: "RuSt"})
	require.NoError(t, err)
	require.Equal(t, secretMessage, *removeOut.Message)

	// 6. Decode (not found)
	_, err = Decode(ctx, cfg, DecodeInput{Path: path, ChunkType: "RuSt"})
	require.True(t, errors.Is(err, errors.ErrChunkNotFound))

	// 7. Import restores the removed chunk only
	importOut, err := Import(ctx, database, cfg, ImportInput{Path: path, Source: exportPath, Mode: ImportModeSkipExisting})
	require.NoError(t, err)
	require.Equal(t, 1, importOut.Imported)
	require.Equal(t, 3, importOut.Skipped)

	decodeOut, err = Decode(ctx, cfg, DecodeInput{Path: path, ChunkType: "RuSt"})
	require.NoError(t, err)
	require.Equal(t, secretMessage, decodeOut.Message)

	// 8. History
	historyOut, err := History(ctx, database, HistoryInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 3, historyOut.Pagination.Total)
	ops := map[string]bool{}
	for _, e := range historyOut.Items {
		ops[e.Op] = true
	}
	require.Equal(t, map[string]bool{db.OpEncode: true, db.OpRemove: true, db.OpImport: true}, ops)

	// 9. Prune
	pruneOut, err := Prune(ctx, database, PruneInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 3, pruneOut.Pruned)

	historyOut, err = History(ctx, database, HistoryInput{})
	require.NoError(t, err)
	require.Empty(t, historyOut.Items)
}
