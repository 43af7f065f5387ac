package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Index is a read-only snapshot of every media artifact under an archive
// root, grouped by (chat_day, kind) for ladder candidate lookup and keyed
// by basename for the fast path. Once built it is never mutated, so it may
// be shared freely across resolver workers.
type Index struct {
	root      string
	byBucket  map[bucketKey][]*Artifact
	byBase    map[string][]*Artifact // basename -> artifacts carrying it (usually one)
}

type bucketKey struct {
	day  string
	kind Kind
}

// Build scans root recursively and constructs an Index. Missing or
// unreadable subdirectories degrade the affected artifacts silently rather
// than aborting the scan, per the resolver's fault-tolerance requirement.
func Build(root string) (*Index, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	idx := &Index{
		root:     root,
		byBucket: make(map[bucketKey][]*Artifact),
		byBase:   make(map[string][]*Artifact),
	}

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // degrade: skip unreadable entries, never abort the scan
		}
		if d.IsDir() {
			return nil
		}
		fi, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		a := newArtifact(path, fi)
		key := bucketKey{day: a.ChatDay(), kind: a.Tokens.Kind}
		idx.byBucket[key] = append(idx.byBucket[key], a)
		idx.byBase[filepath.Base(path)] = append(idx.byBase[filepath.Base(path)], a)
		return nil
	})

	for key := range idx.byBucket {
		sortArtifacts(idx.byBucket[key])
	}
	return idx, nil
}

// sortArtifacts applies the default deterministic order: size ascending,
// then lexical path ascending (the ladder's own tie-break, reused here so
// iteration order is reproducible independent of filesystem readdir order).
func sortArtifacts(as []*Artifact) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].Size != as[j].Size {
			return as[i].Size < as[j].Size
		}
		return as[i].Path < as[j].Path
	})
}

// Candidates returns artifacts on chatDay compatible with kind, ordered
// deterministically (size asc, then path asc).
func (idx *Index) Candidates(chatDay string, kind Kind) []*Artifact {
	return idx.byBucket[bucketKey{day: chatDay, kind: kind}]
}

// FastPathLookup returns the artifact whose basename exactly equals
// mediaHint, if there is exactly one such file anywhere under the archive
// root; the lookup is not restricted to particular media subfolders.
// Ambiguity (two files sharing a basename in different directories) is
// treated as a miss: the fast path never guesses.
func (idx *Index) FastPathLookup(mediaHint string) (*Artifact, bool) {
	matches := idx.byBase[mediaHint]
	if len(matches) != 1 {
		return nil, false
	}
	return matches[0], true
}

// Root returns the archive root this index was built from.
func (idx *Index) Root() string { return idx.root }
