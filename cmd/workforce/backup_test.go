package main

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/store"
)

func TestSplitArchivePath(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantSection string
		wantRel     string
	}{
		{"store file", "store/workforce.db", "store", "workforce.db"},
		{"leading dot-slash", "./store/workforce.db", "store", "workforce.db"},
		{"leading slash", "/store/workforce.db", "store", "workforce.db"},
		{"section root", "store/", "store", ""},
		{"bare section", "store", "store", ""},
		{"escaping path", "store/../etc/passwd", "store", ""},
		{"other section", "nats/jetstream/meta", "", ""},
		{"empty string", "", "", ""},
		{"dot only", ".", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSection, gotRel := splitArchivePath(tt.input)
			if gotSection != tt.wantSection {
				t.Errorf("splitArchivePath(%q) section = %q, want %q", tt.input, gotSection, tt.wantSection)
			}
			if gotRel != tt.wantRel {
				t.Errorf("splitArchivePath(%q) rel = %q, want %q", tt.input, gotRel, tt.wantRel)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 bytes"},
		{512, "512 bytes"},
		{1023, "1023 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{1610612736, "1.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

// createTestArchive builds a zstd-compressed tar with the given entries.
func createTestArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tar.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}

	tw := tar.NewWriter(zw)
	for name, content := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	zw.Close()

	return path
}

func TestScanArchive(t *testing.T) {
	archivePath := createTestArchive(t, map[string]string{
		"store/workforce.db":  "data",
		"other/file.txt":      "ignored",
		"store/../escape.txt": "ignored",
	})

	entries, err := scanArchive(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0] != "store/workforce.db" {
		t.Fatalf("expected only the store entry, got %v", entries)
	}
}

func TestScanArchive_InvalidFile(t *testing.T) {
	if _, err := scanArchive("/nonexistent/file.tar.zst"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestScanArchive_InvalidZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tar.zst")
	os.WriteFile(path, []byte("not zstd data"), 0644)

	if _, err := scanArchive(path); err == nil {
		t.Fatal("expected error for invalid zstd data")
	}
}

func TestRestoreStore(t *testing.T) {
	archivePath := createTestArchive(t, map[string]string{"store/workforce.db": "restored"})
	dest := filepath.Join(t.TempDir(), "data", "workforce.db")

	n, err := restoreStore(archivePath, dest, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != int64(len("restored")) {
		t.Errorf("expected %d bytes, got %d", len("restored"), n)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "restored" {
		t.Errorf("unexpected store content %q", data)
	}
}

func TestRestoreStore_Overwrite(t *testing.T) {
	archivePath := createTestArchive(t, map[string]string{"store/workforce.db": "new"})
	dest := filepath.Join(t.TempDir(), "workforce.db")
	os.WriteFile(dest, []byte("old"), 0644)
	os.WriteFile(dest+"-wal", []byte("stale"), 0644)

	if _, err := restoreStore(archivePath, dest, false); err == nil {
		t.Fatal("expected refusal without -overwrite")
	}
	if data, _ := os.ReadFile(dest); string(data) != "old" {
		t.Fatalf("store changed without -overwrite: %q", data)
	}

	if _, err := restoreStore(archivePath, dest, true); err != nil {
		t.Fatalf("restore with overwrite: %v", err)
	}
	if data, _ := os.ReadFile(dest); string(data) != "new" {
		t.Errorf("expected new content, got %q", data)
	}
	if _, err := os.Stat(dest + "-wal"); !os.IsNotExist(err) {
		t.Error("stale WAL file should be removed")
	}
}

func TestRestoreStore_EmptyArchive(t *testing.T) {
	archivePath := createTestArchive(t, map[string]string{})
	if _, err := restoreStore(archivePath, filepath.Join(t.TempDir(), "x.db"), false); err == nil {
		t.Fatal("expected error for archive without a store")
	}
}

func TestBackupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StoreConfig{Path: filepath.Join(dir, "workforce.db")}

	db, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveTeam(&store.Team{ID: "t1", Name: "Launch crew"}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	snapshot, err := snapshotStore(cfg)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	defer os.Remove(snapshot)

	archivePath := filepath.Join(dir, "backup.tar.zst")
	if _, err := writeArchive(archivePath, snapshot, "workforce.db"); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	restored := config.StoreConfig{Path: filepath.Join(dir, "restored", "workforce.db")}
	if _, err := restoreStore(archivePath, restored.Path, false); err != nil {
		t.Fatalf("restore: %v", err)
	}

	db, err = store.New(restored)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	team, err := db.GetTeam("t1")
	if err != nil {
		t.Fatal(err)
	}
	if team == nil || team.Name != "Launch crew" {
		t.Errorf("expected restored team, got %+v", team)
	}
}
