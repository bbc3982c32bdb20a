// Package storagefs rebuilds a browsable folder tree from the flat
// slash-delimited paths the storage backend keeps.
package storagefs

import (
	"sort"
	"strings"

	"printdesk/internal/repo"
)

// Node kinds.
const (
	KindFolder = "folder"
	KindFile   = "file"
)

// The first path segment is the storage bucket prefix; it is stripped
// for display to avoid a redundant top-level folder.
const strippedPrefix = "archivos"

// Node is one entry of the reconstructed tree.
type Node struct {
	Name     string             `json:"name"`
	Kind     string             `json:"type"`
	Children []*Node            `json:"children,omitempty"`
	Metadata *repo.FileMetadata `json:"metadata,omitempty"`

	index map[string]*Node
}

// BuildTree reconstructs the folder hierarchy from flat file metadata.
// Folders sort before files, each alphabetically.
func BuildTree(files []repo.FileMetadata) *Node {
	root := &Node{Name: "", Kind: KindFolder, index: map[string]*Node{}}

	for i := range files {
		file := files[i]
		parts := strings.Split(strings.Trim(file.FilePath, "/"), "/")
		if len(parts) > 0 && parts[0] == strippedPrefix {
			parts = parts[1:]
		}
		if len(parts) == 0 || parts[0] == "" {
			continue
		}

		current := root
		for depth, part := range parts {
			child, ok := current.index[part]
			if !ok {
				child = &Node{Name: part, Kind: KindFolder, index: map[string]*Node{}}
				if depth == len(parts)-1 {
					child.Kind = KindFile
					child.Metadata = &file
				}
				current.index[part] = child
				current.Children = append(current.Children, child)
			}
			current = child
		}
	}

	sortTree(root)
	return root
}

func sortTree(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Kind != b.Kind {
			return a.Kind == KindFolder
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	for _, child := range n.Children {
		sortTree(child)
	}
}

// CountFiles returns the number of file nodes in the tree.
func CountFiles(n *Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Kind == KindFile {
		count++
	}
	for _, child := range n.Children {
		count += CountFiles(child)
	}
	return count
}
