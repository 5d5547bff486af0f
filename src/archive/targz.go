// Package archive packs and unpacks gzipped tar trees. It is the codec
// for host-directory payloads and for the final snapshot bundle.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PackResult summarizes one packed tree.
type PackResult struct {
	// Files lists the relative paths of regular files packed, sorted.
	Files []string
	// Bytes is the total uncompressed payload size.
	Bytes int64
}

// PackDir writes srcDir's contents as a gzipped tar at destPath. Paths
// inside the archive are relative to srcDir. On any error the partial
// destination file is removed so no truncated archive survives.
func PackDir(srcDir, destPath string) (PackResult, error) {
	out, err := os.Create(destPath)
	if err != nil {
		return PackResult{}, fmt.Errorf("create archive %s: %w", destPath, err)
	}
	res, err := packInto(srcDir, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return PackResult{}, fmt.Errorf("pack %s: %w", srcDir, err)
	}
	return res, nil
}

func packInto(srcDir string, out io.Writer) (PackResult, error) {
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	var res PackResult
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
			return tw.WriteHeader(hdr)
		}
		if !info.Mode().IsRegular() {
			// Symlinks and devices are not expected inside the staged
			// trees; skip rather than fail the whole snapshot.
			return nil
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		n, err := io.Copy(tw, f)
		f.Close()
		if err != nil {
			return err
		}
		res.Files = append(res.Files, filepath.ToSlash(rel))
		res.Bytes += n
		return nil
	})
	if err != nil {
		return PackResult{}, err
	}
	if err := tw.Close(); err != nil {
		return PackResult{}, err
	}
	if err := gz.Close(); err != nil {
		return PackResult{}, err
	}
	sort.Strings(res.Files)
	return res, nil
}

// UnpackDir extracts a gzipped tar at srcPath into destDir, creating it
// if needed. Entries escaping destDir are rejected.
func UnpackDir(srcPath, destDir string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", srcPath, err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read archive %s: %w", srcPath, err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive %s: %w", srcPath, err)
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// Other entry types are skipped, mirroring PackDir.
		}
	}
}

// Index walks dir and returns the relative paths and total size of all
// regular files beneath it, without archiving anything.
func Index(dir string) (PackResult, error) {
	var res PackResult
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		res.Files = append(res.Files, filepath.ToSlash(rel))
		res.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return PackResult{}, err
	}
	sort.Strings(res.Files)
	return res, nil
}

func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}

// CopyTree recursively copies srcDir into destDir, replacing destDir's
// previous contents. It is the overwrite primitive the restore engine
// uses for live trees.
func CopyTree(srcDir, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return err
	}
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
