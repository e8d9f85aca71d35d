package merkle

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/localcode/codescope/internal/hasher"
)

// snapshotBody is the gob-encoded, length-prefixed payload following the
// fixed header. Field names are stable; changing them requires bumping
// SchemaVersion.
type snapshotBody struct {
	Nodes map[string]FileNode
}

// Save persists the tree atomically: write to a temp file in the same
// directory, then rename over the target. Partial writes
// on crash never become a valid snapshot because the rename is the only
// operation that makes the path exist.
func (t *Tree) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("merkle: create snapshot dir: %w", err)
	}

	var bodyBuf bytes.Buffer
	if err := gob.NewEncoder(&bodyBuf).Encode(snapshotBody{Nodes: t.Nodes}); err != nil {
		return fmt.Errorf("merkle: encode snapshot body: %w", err)
	}

	root, _ := t.RootHash()

	var out bytes.Buffer
	if err := binary.Write(&out, binary.BigEndian, SchemaVersion); err != nil {
		return err
	}
	if err := binary.Write(&out, binary.BigEndian, uint64(time.Now().Unix())); err != nil {
		return err
	}
	if _, err := out.Write(root[:]); err != nil {
		return err
	}
	if err := binary.Write(&out, binary.BigEndian, uint64(bodyBuf.Len())); err != nil {
		return err
	}
	if _, err := out.Write(bodyBuf.Bytes()); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("merkle: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("merkle: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("merkle: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("merkle: rename temp snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot. A missing file yields (nil, nil). A corrupted file,
// or one written by an unrecognized schema version, is treated as absent so
// callers fall back to a full reindex.
func Load(path string, rootDir string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("merkle: read snapshot: %w", err)
	}

	const headerLen = 4 + 8 + hasher.Size + 8
	if len(data) < headerLen {
		return nil, nil // corrupt: treat as absent
	}

	buf := bytes.NewReader(data)

	var version uint32
	if err := binary.Read(buf, binary.BigEndian, &version); err != nil {
		return nil, nil
	}
	if version != SchemaVersion {
		return nil, nil // unknown version: treated as absent
	}

	var createdAtUnix uint64
	if err := binary.Read(buf, binary.BigEndian, &createdAtUnix); err != nil {
		return nil, nil
	}

	var root [hasher.Size]byte
	if _, err := buf.Read(root[:]); err != nil {
		return nil, nil
	}

	var bodyLen uint64
	if err := binary.Read(buf, binary.BigEndian, &bodyLen); err != nil {
		return nil, nil
	}
	if bodyLen > uint64(buf.Len()) {
		return nil, nil // truncated/corrupt
	}

	bodyBytes := make([]byte, bodyLen)
	if _, err := buf.Read(bodyBytes); err != nil {
		return nil, nil
	}

	var body snapshotBody
	if err := gob.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&body); err != nil {
		return nil, nil // corrupt payload: treated as absent
	}

	tree := &Tree{RootDir: rootDir, Nodes: body.Nodes}
	if len(body.Nodes) > 0 {
		tree.root = root
		tree.hasLeaves = true
	}
	return tree, nil
}

// RemoveSnapshot deletes the snapshot file at path, if present. Used by
// force-reindex to guarantee the next run treats the tree as unseen.
func RemoveSnapshot(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("merkle: remove snapshot %s: %w", path, err)
	}
	return nil
}
