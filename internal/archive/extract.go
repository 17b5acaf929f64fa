// Package archive extracts simulation upload archives into a working
// directory, rejecting members that would escape it.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for archives that are neither
	// .zip nor .tar.gz/.tgz.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrPathTraversal is returned when a member would resolve outside
	// the extraction directory.
	ErrPathTraversal = errors.New("archive member path escapes extraction directory")

	// ErrUnsafeMember is returned for tar members that are neither
	// regular files nor directories.
	ErrUnsafeMember = errors.New("unsafe archive member type")
)

// Extract unpacks archivePath into outputDir. All member paths are
// validated against outputDir before anything is written.
func Extract(archivePath, outputDir string) error {
	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		return extractZip(archivePath, outputDir)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractTarGz(archivePath, outputDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, archivePath)
	}
}

func extractZip(zipPath, outputDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if _, err := resolveMember(outputDir, file.Name); err != nil {
			return err
		}
	}

	for _, file := range reader.File {
		target, err := resolveMember(outputDir, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		if err := writeZipFile(file, target); err != nil {
			return err
		}
	}

	return nil
}

func writeZipFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", target, err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip member %s: %w", file.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	defer func() {
		_ = dst.Close()
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write file %s: %w", target, err)
	}

	return nil
}

func extractTarGz(tarGzPath, outputDir string) error {
	// First pass validates every member before any write happens.
	if err := walkTar(tarGzPath, func(header *tar.Header) error {
		if _, err := resolveMember(outputDir, header.Name); err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg && header.Typeflag != tar.TypeDir {
			return fmt.Errorf("%w: %s", ErrUnsafeMember, header.Name)
		}
		return nil
	}, nil); err != nil {
		return err
	}

	return walkTar(tarGzPath, nil, func(header *tar.Header, r io.Reader) error {
		target, err := resolveMember(outputDir, header.Name)
		if err != nil {
			return err
		}

		if header.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directory for %s: %w", target, err)
		}

		dst, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("create file %s: %w", target, err)
		}
		defer func() {
			_ = dst.Close()
		}()

		if _, err := io.Copy(dst, r); err != nil {
			return fmt.Errorf("write file %s: %w", target, err)
		}
		return nil
	})
}

// walkTar iterates a gzip-compressed tar archive, invoking inspect on
// every header and extract on every header with its content reader.
func walkTar(tarGzPath string, inspect func(*tar.Header) error, extract func(*tar.Header, io.Reader) error) error {
	f, err := os.Open(tarGzPath)
	if err != nil {
		return fmt.Errorf("open tar archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if inspect != nil {
			if err := inspect(header); err != nil {
				return err
			}
		}
		if extract != nil {
			if err := extract(header, tr); err != nil {
				return err
			}
		}
	}
}

// resolveMember joins a member name onto the extraction directory and
// verifies the result stays inside it.
func resolveMember(outputDir, name string) (string, error) {
	base, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}

	target := filepath.Clean(filepath.Join(base, name))
	if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s -> %s", ErrPathTraversal, name, target)
	}

	return target, nil
}
