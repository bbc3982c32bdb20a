package storagefs

import (
	"testing"

	"printdesk/internal/repo"
)

func TestBuildTreeStripsBucketPrefix(t *testing.T) {
	files := []repo.FileMetadata{
		{ID: "1", FilePath: "archivos/clientes/logo.png", FileName: "logo.png"},
		{ID: "2", FilePath: "archivos/clientes/brief.pdf", FileName: "brief.pdf"},
		{ID: "3", FilePath: "archivos/notas.txt", FileName: "notas.txt"},
	}

	root := BuildTree(files)
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(root.Children))
	}

	// Folders sort before files.
	if root.Children[0].Name != "clientes" || root.Children[0].Kind != KindFolder {
		t.Errorf("first node = %+v, want clientes folder", root.Children[0])
	}
	if root.Children[1].Name != "notas.txt" || root.Children[1].Kind != KindFile {
		t.Errorf("second node = %+v, want notas.txt file", root.Children[1])
	}

	clientes := root.Children[0]
	if len(clientes.Children) != 2 {
		t.Fatalf("clientes folder has %d children, want 2", len(clientes.Children))
	}
	if clientes.Children[0].Name != "brief.pdf" {
		t.Errorf("folder children not sorted: %s", clientes.Children[0].Name)
	}
	if clientes.Children[1].Metadata == nil || clientes.Children[1].Metadata.ID != "1" {
		t.Error("file node missing its metadata")
	}
}

func TestBuildTreeWithoutPrefix(t *testing.T) {
	files := []repo.FileMetadata{
		{ID: "1", FilePath: "otros/a.txt", FileName: "a.txt"},
	}
	root := BuildTree(files)
	if len(root.Children) != 1 || root.Children[0].Name != "otros" {
		t.Fatalf("unexpected tree %+v", root.Children)
	}
}

func TestCountFiles(t *testing.T) {
	files := []repo.FileMetadata{
		{ID: "1", FilePath: "archivos/a/b/c.txt", FileName: "c.txt"},
		{ID: "2", FilePath: "archivos/a/d.txt", FileName: "d.txt"},
	}
	if got := CountFiles(BuildTree(files)); got != 2 {
		t.Errorf("CountFiles = %d, want 2", got)
	}
}

func TestBuildTreeIgnoresEmptyPaths(t *testing.T) {
	files := []repo.FileMetadata{
		{ID: "1", FilePath: "archivos", FileName: ""},
		{ID: "2", FilePath: "", FileName: ""},
	}
	root := BuildTree(files)
	if len(root.Children) != 0 {
		t.Errorf("expected empty tree, got %d nodes", len(root.Children))
	}
}
