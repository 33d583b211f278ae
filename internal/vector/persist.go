package vector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
)

// On-disk layout: <collection>.idx holds the raw vectors, little-endian,
// behind a fixed header; <collection>_meta.json holds the parallel
// documents and metadata arrays. Both files are replaced atomically via
// temp-file rename.
const (
	fileMagic   = "GVIX"
	fileVersion = uint32(1)
)

type metaFile struct {
	Documents []string           `json:"documents"`
	Metadatas []corpus.ChunkMeta `json:"metadatas"`
}

func (idx *Index) indexPath() string {
	return filepath.Join(idx.dir, idx.collection+".idx")
}

func (idx *Index) metaPath() string {
	return filepath.Join(idx.dir, idx.collection+"_meta.json")
}

// load reads the on-disk state. Any problem, from a missing file to a
// dimension mismatch, leaves the index empty: stale vectors must never be
// searched against embeddings of a different shape.
func (idx *Index) load() {
	vectors, err := readVectors(idx.indexPath(), idx.dim)
	if err != nil {
		if !os.IsNotExist(err) {
			idx.logger.Warn("discarding unreadable vector index",
				"path", idx.indexPath(), "error", err)
		}
		return
	}

	raw, err := os.ReadFile(idx.metaPath())
	if err != nil {
		if !os.IsNotExist(err) {
			idx.logger.Warn("discarding vector index with unreadable metadata",
				"path", idx.metaPath(), "error", err)
		}
		return
	}
	var meta metaFile
	if err := json.Unmarshal(raw, &meta); err != nil {
		idx.logger.Warn("discarding vector index with corrupt metadata",
			"path", idx.metaPath(), "error", err)
		return
	}
	if len(meta.Documents) != len(vectors) || len(meta.Metadatas) != len(vectors) {
		idx.logger.Warn("discarding vector index with mismatched metadata",
			"vectors", len(vectors), "documents", len(meta.Documents), "metadatas", len(meta.Metadatas))
		return
	}

	idx.vectors = vectors
	idx.documents = meta.Documents
	idx.metas = meta.Metadatas
}

// persist writes both files. Callers hold the write lock.
func (idx *Index) persist() error {
	if err := os.MkdirAll(idx.dir, 0o750); err != nil {
		return err
	}

	if err := writeAtomic(idx.indexPath(), encodeVectors(idx.vectors, idx.dim)); err != nil {
		return err
	}

	meta := metaFile{Documents: idx.documents, Metadatas: idx.metas}
	if meta.Documents == nil {
		meta.Documents = []string{}
	}
	if meta.Metadatas == nil {
		meta.Metadatas = []corpus.ChunkMeta{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(idx.metaPath(), raw)
}

func encodeVectors(vectors [][]float32, dim int) []byte {
	var buf bytes.Buffer
	buf.WriteString(fileMagic)
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], fileVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(dim))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(vectors)))
	buf.Write(header)

	scratch := make([]byte, 4)
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(scratch, math.Float32bits(f))
			buf.Write(scratch)
		}
	}
	return buf.Bytes()
}

func readVectors(path string, dim int) ([][]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 16 || string(raw[:4]) != fileMagic {
		return nil, fmt.Errorf("not a vector index file")
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != fileVersion {
		return nil, fmt.Errorf("unsupported index version %d", v)
	}
	if d := binary.LittleEndian.Uint32(raw[8:12]); int(d) != dim {
		return nil, fmt.Errorf("index has %d dimensions, want %d", d, dim)
	}
	count := int(binary.LittleEndian.Uint32(raw[12:16]))

	data := raw[16:]
	if len(data) != count*dim*4 {
		return nil, fmt.Errorf("index data is %d bytes, want %d", len(data), count*dim*4)
	}

	vectors := make([][]float32, count)
	off := 0
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vectors[i] = v
	}
	return vectors, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
