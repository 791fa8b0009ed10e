package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"github.com/ugorji/go/codec"
)

// exdbHandle is the CBOR configuration for .exdb snapshots. Canonical
// encoding keeps regenerated snapshots byte-comparable.
var exdbHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

// SaveExecDB writes a snapshot as compact CBOR, atomically.
func SaveExecDB(path string, db *ExecDB) error {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, exdbHandle).Encode(db); err != nil {
		return fmt.Errorf("exdb: encode %s: %w", path, err)
	}
	return atomicWrite(path, buf)
}

// LoadExecDB reads a snapshot. Load failures are fatal to the caller and
// always carry the offending path.
func LoadExecDB(path string) (*ExecDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("exdb: read %s: %w", path, err)
	}
	db := new(ExecDB)
	if err := codec.NewDecoderBytes(data, exdbHandle).Decode(db); err != nil {
		return nil, fmt.Errorf("exdb: decode %s: %w", path, err)
	}
	if db.Fns == nil {
		db.Fns = make(map[uint64]*Function)
	}
	if db.Vtables == nil {
		db.Vtables = make(map[string]*Vtable)
	}
	if db.Strings == nil {
		db.Strings = make(map[string]*StringRef)
	}
	return db, nil
}

// SaveBindDB writes the binds file as pretty-printed JSON so it can be
// diffed between runs. The write is atomic and guarded by a sibling
// .lock file against concurrent runs on the same database.
func SaveBindDB(path string, db *BindDB) error {
	data, err := json.MarshalIndent(db.Binds, "", "  ")
	if err != nil {
		return fmt.Errorf("binddb: encode %s: %w", path, err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("binddb: lock %s: %w", path, err)
	}
	defer lock.Unlock()
	return atomicWrite(path, append(data, '\n'))
}

// LoadBindDB reads a binds file and attaches the oracle and persistence
// path. Key order after a reload is the sorted name order.
func LoadBindDB(path string, oracle Oracle) (*BindDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("binddb: read %s: %w", path, err)
	}
	binds := make(map[string]Bind)
	if err := json.Unmarshal(data, &binds); err != nil {
		return nil, fmt.Errorf("binddb: decode %s: %w", path, err)
	}
	db := NewBindDB(oracle, path)
	db.Binds = binds
	for name := range binds {
		db.order = append(db.order, name)
	}
	sort.Strings(db.order)
	return db, nil
}

// atomicWrite writes via a temp file in the target directory plus rename
// so an interrupt never leaves a torn file behind.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".symbograft-*")
	if err != nil {
		return fmt.Errorf("persist: temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persist: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist: rename to %s: %w", path, err)
	}
	return nil
}
