package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSource = `
/// Adds two numbers.
pub fn add(a: i32, b: i32) -> i32 {
    helper(a, b)
}

fn helper(a: i32, b: i32) -> i32 {
    a + b
}

pub struct Point {
    x: i32,
    y: i32,
}
`

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	t.Setenv("CODESCOPE_DATA_DIR", t.TempDir())
	dir := t.TempDir()
	return NewService(), dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexCodebaseAndSearch(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	ctx := context.Background()
	result, err := svc.IndexCodebase(ctx, dir, false)
	require.NoError(t, err)
	require.Empty(t, result.FileErrors)
	require.Equal(t, 1, result.Stats.IndexedFiles)
	require.Equal(t, 3, result.Stats.TotalChunks)

	results, err := svc.Search(ctx, dir, "helper", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestSearchAutoIndexes(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	ctx := context.Background()
	results, err := svc.Search(ctx, dir, "add", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestGetSimilarCode(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	ctx := context.Background()
	results, err := svc.GetSimilarCode(ctx, "adds two numbers", dir, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		require.Nil(t, r.LexicalScore)
		require.NotNil(t, r.VectorScore)
	}
}

func TestFindDefinition(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	locs, err := svc.FindDefinition(context.Background(), "helper", dir)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.Equal(t, "function", locs[0].Kind)
}

func TestFindReferences(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	refs, err := svc.FindReferences(context.Background(), "helper", dir)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "add", refs[0].CallerSymbol)
}

func TestGetDependencies(t *testing.T) {
	svc, dir := newTestService(t)
	path := writeFile(t, dir, "lib.rs", "use std::collections::{HashMap, HashSet};\n"+sampleSource)

	imports, err := svc.GetDependencies(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	require.Equal(t, "std::collections", imports[0].Path)
	require.ElementsMatch(t, []string{"HashMap", "HashSet"}, imports[0].Items)
}

func TestGetCallGraph(t *testing.T) {
	svc, dir := newTestService(t)
	path := writeFile(t, dir, "lib.rs", sampleSource)

	view, err := svc.GetCallGraph(context.Background(), path, "add")
	require.NoError(t, err)
	require.Equal(t, []string{"helper"}, view.Edges["add"])

	full, err := svc.GetCallGraph(context.Background(), path, "")
	require.NoError(t, err)
	require.Contains(t, full.Edges, "add")
	require.Contains(t, full.Edges, "helper")
}

func TestAnalyzeComplexity(t *testing.T) {
	svc, dir := newTestService(t)
	path := writeFile(t, dir, "lib.rs", sampleSource)

	metrics, err := svc.AnalyzeComplexity(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, metrics.FunctionCount)
	require.Equal(t, 3, metrics.SymbolCount)
	require.Greater(t, metrics.AverageFunctionLines, 0.0)
}

func TestReadFileContentRejectsBinary(t *testing.T) {
	svc, dir := newTestService(t)
	textPath := writeFile(t, dir, "lib.rs", sampleSource)
	binPath := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 'h', 'i'}, 0o644))

	content, err := svc.ReadFileContent(context.Background(), textPath)
	require.NoError(t, err)
	require.Equal(t, sampleSource, content)

	_, err = svc.ReadFileContent(context.Background(), binPath)
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	health, err := svc.HealthCheck(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, health.Overall)
}

func TestClearCache(t *testing.T) {
	svc, dir := newTestService(t)
	writeFile(t, dir, "lib.rs", sampleSource)

	ctx := context.Background()
	_, err := svc.IndexCodebase(ctx, dir, false)
	require.NoError(t, err)

	require.NoError(t, svc.ClearCache(ctx, dir))

	results, err := svc.Search(ctx, dir, "helper", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results) // ClearCache wipes state, but Search auto-reindexes
}
