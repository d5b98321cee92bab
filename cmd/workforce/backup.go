package main

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/store"
)

// Archives hold a consistent copy of the sqlite store under storeSection.
const storeSection = "store"

func runBackup(args []string) error {
	var outputPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			outputPath = args[i]
		}
	}

	if outputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: workforce backup -f <output.tar.zst>\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return fmt.Errorf("store not found: %w", err)
	}

	snapshot, err := snapshotStore(cfg.Store)
	if err != nil {
		return err
	}
	defer os.Remove(snapshot)

	size, err := writeArchive(outputPath, snapshot, filepath.Base(cfg.Store.Path))
	if err != nil {
		return err
	}

	fmt.Printf("Backup complete: %s\n", formatSize(size))
	return nil
}

// snapshotStore copies the live database into a temporary file. VACUUM INTO
// produces a consistent copy even while the service is writing.
func snapshotStore(cfg config.StoreConfig) (string, error) {
	db, err := store.New(cfg)
	if err != nil {
		return "", fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("workforce-backup-%d.db", time.Now().UnixNano()))
	if _, err := db.DB().Exec(`VACUUM INTO ?`, snapshot); err != nil {
		return "", fmt.Errorf("snapshot store: %w", err)
	}
	return snapshot, nil
}

// writeArchive stores src as storeSection/name in a zstd-compressed tar and
// returns the archive size.
func writeArchive(outputPath, src, name string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	hdr := &tar.Header{
		Name:    path.Join(storeSection, name),
		Mode:    0o644,
		Size:    info.Size(),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, fmt.Errorf("write tar header: %w", err)
	}
	if _, err := io.Copy(tw, in); err != nil {
		return 0, fmt.Errorf("write tar data: %w", err)
	}

	// Close everything explicitly to catch write errors
	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zstd: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close file: %w", err)
	}

	out, err := os.Stat(outputPath)
	if err != nil {
		return 0, nil
	}
	return out.Size(), nil
}

func runRestore(args []string) error {
	var inputPath string
	overwrite := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			inputPath = args[i]
		case "-overwrite":
			overwrite = true
		}
	}

	if inputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: workforce restore -f <backup.tar.zst> [-overwrite]\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	size, err := restoreStore(inputPath, cfg.Store.Path, overwrite)
	if err != nil {
		return err
	}
	fmt.Printf("Restore complete: %s written to %s\n", formatSize(size), cfg.Store.Path)
	return nil
}

// restoreStore extracts the store entry of the archive to dest. The service
// must be stopped: an existing database and its WAL files are replaced.
func restoreStore(archivePath, dest string, overwrite bool) (int64, error) {
	entries, err := scanArchive(archivePath)
	if err != nil {
		return 0, fmt.Errorf("scan archive: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("archive contains no store")
	}
	if len(entries) > 1 {
		return 0, fmt.Errorf("archive contains %d store files, expected one", len(entries))
	}

	if _, err := os.Stat(dest); err == nil && !overwrite {
		return 0, fmt.Errorf("store %s already exists, add -overwrite to replace it", dest)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return 0, fmt.Errorf("store entry %s not found", entries[0])
		}
		if err != nil {
			return 0, fmt.Errorf("read tar entry: %w", err)
		}
		if hdr.Name == entries[0] {
			return writeStoreFile(tr, dest)
		}
	}
}

func writeStoreFile(r io.Reader, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}

	tmp := dest + ".restore"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create store file: %w", err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("write store file: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dest + suffix); err != nil && !os.IsNotExist(err) {
			os.Remove(tmp)
			return 0, fmt.Errorf("remove stale %s: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replace store: %w", err)
	}
	return n, nil
}

// scanArchive returns the store file entries of an archive.
func scanArchive(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var entries []string
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if section, rel := splitArchivePath(hdr.Name); section == storeSection && rel != "" {
			entries = append(entries, hdr.Name)
		}
	}
	return entries, nil
}

// splitArchivePath splits an entry name into its section and the path below
// it. Names that escape the section yield empty strings.
func splitArchivePath(name string) (section, rel string) {
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." {
		return "", ""
	}

	section, rel, _ = strings.Cut(name, "/")
	if section != storeSection {
		return "", ""
	}
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return section, ""
	}
	return section, rel
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
