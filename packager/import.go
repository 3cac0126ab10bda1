package packager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"brimstone/asset"
	"brimstone/instance"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// ImportResult is the reconstructed instance plus what happened to each
// package entry. Skipped entries already existed in the store and were
// left untouched.
type ImportResult struct {
	Instance  instance.Instance
	Extracted []string
	Skipped   []string
}

// Unpack reads the package at src, extracts its files into the store and
// returns the instance with asset paths pointing at the extracted files.
// Files already present in the store are never overwritten. The caller
// adds the instance to its catalog.
func (p *Packager) Unpack(src string) (*ImportResult, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open package '%s': %w", src, err)
	}
	defer zr.Close()

	inst, err := readDefinition(zr.File)
	if err != nil {
		return nil, fmt.Errorf("read package '%s': %w", src, err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.Name == instance.Filename || f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, err := entryPath(f.Name); err != nil {
			return nil, fmt.Errorf("read package '%s': %w", src, err)
		}
		files = append(files, f)
	}

	inst, err = relocateRefs(inst)
	if err != nil {
		return nil, fmt.Errorf("read package '%s': %w", src, err)
	}
	inst = inst.CanonicalSaveDir()

	result := &ImportResult{}
	for _, f := range files {
		extracted, err := p.extract(f)
		if err != nil {
			return nil, fmt.Errorf("unpack '%s': %w", src, err)
		}
		if extracted {
			result.Extracted = append(result.Extracted, f.Name)
		} else {
			result.Skipped = append(result.Skipped, f.Name)
		}
	}

	p.warnMissing(inst)
	result.Instance = inst
	p.log.Infow("Package imported",
		zap.String("instance", inst.Metadata.Name),
		zap.String("path", src),
		zap.Int("extracted", len(result.Extracted)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func readDefinition(files []*zip.File) (instance.Instance, error) {
	var def *zip.File
	for _, f := range files {
		if f.Name == instance.Filename {
			def = f
			break
		}
	}
	if def == nil {
		return instance.Instance{}, fmt.Errorf("%w: %s not found", ErrInvalidPackage, instance.Filename)
	}

	rc, err := def.Open()
	if err != nil {
		return instance.Instance{}, fmt.Errorf("open %s: %w", instance.Filename, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return instance.Instance{}, fmt.Errorf("read %s: %w", instance.Filename, err)
	}

	inst, err := instance.Unmarshal(data)
	if err != nil {
		return instance.Instance{}, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}
	if err := inst.Validate(); err != nil {
		return instance.Instance{}, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}
	return inst, nil
}

// relocateRefs re-derives every asset path from its basename and kind.
// Paths embedded in the package are not trusted.
func relocateRefs(inst instance.Instance) (instance.Instance, error) {
	for _, k := range asset.Kinds {
		refs := inst.Refs(k)
		out := make([]asset.Ref, 0, len(refs))
		for _, r := range refs {
			filename, ok := r.Filename()
			if !ok {
				return inst, fmt.Errorf("%w: %s '%s': %w", ErrInvalidPackage, k, r.Path, asset.ErrNoFilename)
			}
			out = append(out, r.WithPath(k.RelativePath(filename)))
		}
		inst = inst.WithRefs(k, out)
	}
	return inst, nil
}

// entryPath cleans an entry name and rejects names that would land
// outside the store.
func entryPath(name string) (string, error) {
	if strings.Contains(name, `\`) || path.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: unsafe entry name '%s'", ErrInvalidPackage, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: unsafe entry name '%s'", ErrInvalidPackage, name)
	}
	return clean, nil
}

// extract writes one entry below the store root unless a file of that
// name already exists there.
func (p *Packager) extract(f *zip.File) (bool, error) {
	rel, err := entryPath(f.Name)
	if err != nil {
		return false, err
	}

	destDir, err := p.store.FullDirectory(path.Dir(rel))
	if err != nil {
		return false, err
	}
	dest := filepath.Join(destDir, path.Base(rel))

	if _, err := os.Lstat(dest); err == nil {
		p.log.Warnw("File already in store, skipping", zap.String("path", dest))
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("check '%s': %w", dest, err)
	}

	p.log.Infow("Extracting from package", zap.String("entry", f.Name), zap.String("path", dest))
	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("open entry '%s': %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return false, fmt.Errorf("create '%s': %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return false, fmt.Errorf("write '%s': %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return false, fmt.Errorf("close '%s': %w", dest, err)
	}
	return true, nil
}

func (p *Packager) warnMissing(inst instance.Instance) {
	for _, k := range asset.Kinds {
		for _, r := range inst.Refs(k) {
			abs, err := r.AbsolutePath(p.store)
			if err != nil {
				continue
			}
			if _, err := os.Stat(abs); err != nil {
				p.log.Warnw("Imported reference has no file", zap.String("kind", k.String()), zap.String("path", abs))
			}
		}
	}
}
