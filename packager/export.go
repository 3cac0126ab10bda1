package packager

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"brimstone/asset"
	"brimstone/instance"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// ExportOptions select the mutable state carried by a package.
type ExportOptions struct {
	TransferSaves    bool
	TransferPlaytime bool
}

// ExportResult describes a written package.
type ExportResult struct {
	Path     string
	Instance instance.Instance // as serialized into the package
	Entries  []string
	Bytes    int64
}

type packWriter struct {
	zw      *zip.Writer
	written map[string]bool
	result  *ExportResult
}

func (w *packWriter) addDir(name string) error {
	name += "/"
	if w.written[name] {
		return nil
	}
	if _, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: time.Now()}); err != nil {
		return fmt.Errorf("add directory '%s': %w", name, err)
	}
	w.written[name] = true
	w.result.Entries = append(w.result.Entries, name)
	return nil
}

func (w *packWriter) addFile(name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("add '%s' from '%s': %w", name, src, err)
	}
	defer in.Close()

	modified := time.Now()
	if info, err := in.Stat(); err == nil {
		modified = info.ModTime()
	}
	return w.add(name, in, modified)
}

func (w *packWriter) add(name string, r io.Reader, modified time.Time) error {
	out, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("add '%s': %w", name, err)
	}
	n, err := io.Copy(out, r)
	if err != nil {
		return fmt.Errorf("write '%s': %w", name, err)
	}
	w.written[name] = true
	w.result.Entries = append(w.result.Entries, name)
	w.result.Bytes += n
	return nil
}

// Pack writes inst and its files into a package at dest. inst is never
// modified. An instance that could not be imported again is rejected before
// dest is created. On other errors the file at dest is incomplete and must
// be discarded.
func (p *Packager) Pack(inst instance.Instance, dest string, opts ExportOptions) (*ExportResult, error) {
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("pack '%s': %w", inst.Metadata.Name, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create package '%s': %w", dest, err)
	}

	result := &ExportResult{Path: dest}
	w := &packWriter{zw: zip.NewWriter(f), written: map[string]bool{}, result: result}

	exported, err := p.pack(w, inst, opts)
	if err != nil {
		w.zw.Close()
		f.Close()
		return nil, fmt.Errorf("pack '%s' into '%s': %w", inst.Metadata.Name, dest, err)
	}
	if err := w.zw.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("finalize package '%s': %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close package '%s': %w", dest, err)
	}

	result.Instance = exported
	p.log.Infow("Package written",
		zap.String("instance", inst.Metadata.Name),
		zap.String("path", dest),
		zap.Int("entries", len(result.Entries)),
		zap.Int64("bytes", result.Bytes),
	)
	return result, nil
}

func (p *Packager) pack(w *packWriter, inst instance.Instance, opts ExportOptions) (instance.Instance, error) {
	for _, k := range asset.Kinds {
		if err := w.addDir(k.Dir()); err != nil {
			return inst, err
		}
	}

	exported := inst.CanonicalSaveDir()

	if opts.TransferSaves {
		if err := p.packSaves(w, inst, exported.GameData.SaveDir); err != nil {
			return inst, err
		}
	}

	if !opts.TransferPlaytime {
		exported = exported.WithoutPlayHistory()
	}

	for _, k := range asset.Kinds {
		refs, err := p.packAssets(w, k, exported.Refs(k))
		if err != nil {
			return inst, err
		}
		exported = exported.WithRefs(k, refs)
	}

	data, err := exported.Marshal()
	if err != nil {
		return inst, err
	}
	if err := w.add(instance.Filename, bytes.NewReader(data), time.Now()); err != nil {
		return inst, err
	}
	return exported, nil
}

// packSaves copies the regular files of the live save directory under the
// canonical save path. A missing save directory contributes no files.
func (p *Packager) packSaves(w *packWriter, inst instance.Instance, saveDir string) error {
	if err := w.addDir(saveDir); err != nil {
		return err
	}

	src, err := inst.AbsoluteSaveDir(p.store)
	if err != nil {
		return fmt.Errorf("resolve save directory: %w", err)
	}
	entries, err := os.ReadDir(src)
	if errors.Is(err, os.ErrNotExist) {
		p.log.Infow("No save directory, exporting without saves", zap.String("path", src))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read save directory '%s': %w", src, err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := saveDir + "/" + e.Name()
		p.log.Debugw("Writing save to package", zap.String("entry", name))
		if err := w.addFile(name, filepath.Join(src, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// packAssets writes each referenced file to <category>/<basename> and
// returns the references rewritten to that path.
func (p *Packager) packAssets(w *packWriter, k asset.Kind, refs []asset.Ref) ([]asset.Ref, error) {
	out := make([]asset.Ref, 0, len(refs))
	for _, r := range refs {
		filename, ok := r.Filename()
		if !ok {
			return nil, fmt.Errorf("%s '%s': %w", k, r.Path, asset.ErrNoFilename)
		}
		src, err := r.AbsolutePath(p.store)
		if err != nil {
			return nil, fmt.Errorf("%s '%s': %w", k, r.Path, err)
		}

		entry := k.RelativePath(filename)
		if w.written[entry] {
			p.log.Warnw("Duplicate file name in package, reusing entry",
				zap.String("entry", entry),
				zap.String("source", src),
			)
		} else {
			p.log.Infow("Writing asset to package", zap.String("entry", entry))
			if err := w.addFile(entry, src); err != nil {
				return nil, err
			}
		}
		out = append(out, r.WithPath(entry))
	}
	return out, nil
}
