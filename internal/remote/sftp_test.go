package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/vizzaro-home/wallsync/internal/retry"
)

type fakeInfo struct {
	name string
	dir  bool
}

func (f fakeInfo) Name() string { return f.name }
func (f fakeInfo) Size() int64  { return 0 }
func (f fakeInfo) Mode() os.FileMode {
	if f.dir {
		return os.ModeDir
	}
	return 0
}
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

type fakeFS struct {
	dirs  map[string][]os.FileInfo
	errs  map[string]error
	files map[string][]byte
	block chan struct{} // calls wait on this channel when set
}

func (f *fakeFS) ReadDir(p string) ([]os.FileInfo, error) {
	if f.block != nil {
		<-f.block
	}
	if err := f.errs[p]; err != nil {
		return nil, err
	}
	return f.dirs[p], nil
}

func (f *fakeFS) Open(p string) (io.ReadCloser, error) {
	if f.block != nil {
		<-f.block
	}
	data, ok := f.files[p]
	if !ok {
		return nil, errors.New("no such file: " + p)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newTestClient(fs remoteFS) *Client {
	return &Client{
		fs:        fs,
		retry:     retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond},
		opTimeout: time.Second,
		exts:      map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}},
		excluded:  map[string]struct{}{"300dpi": {}, "thumbs": {}, "all data": {}},
	}
}

func TestScanImagesFiltersByExtension(t *testing.T) {
	c := newTestClient(&fakeFS{
		dirs: map[string][]os.FileInfo{
			"/WallpaperBooks/Spring": {
				fakeInfo{name: "A1.jpg"},
				fakeInfo{name: "A2.PNG"},
				fakeInfo{name: "notes.txt"},
				fakeInfo{name: "data.xlsx"},
			},
		},
	})

	out := c.ScanImages(context.Background(), "/WallpaperBooks/Spring")
	if len(out) != 2 {
		t.Fatalf("Expected 2 images, got %d: %v", len(out), out)
	}
	if out[0].Name != "A1.jpg" || out[1].Name != "A2.PNG" {
		t.Errorf("Unexpected entries: %v, %v", out[0].Name, out[1].Name)
	}
	if out[0].Path != "/WallpaperBooks/Spring/A1.jpg" {
		t.Errorf("Unexpected path %q", out[0].Path)
	}
}

func TestScanImagesSkipsExcludedDirs(t *testing.T) {
	root := "/WallpaperBooks/Spring"
	c := newTestClient(&fakeFS{
		dirs: map[string][]os.FileInfo{
			root: {
				fakeInfo{name: "300dpi", dir: true},
				fakeInfo{name: "Thumbs", dir: true},
				fakeInfo{name: "Patterns", dir: true},
			},
			root + "/300dpi":   {fakeInfo{name: "huge.jpg"}},
			root + "/Thumbs":   {fakeInfo{name: "tiny.jpg"}},
			root + "/Patterns": {fakeInfo{name: "A1.jpg"}},
		},
	})

	out := c.ScanImages(context.Background(), root)
	if len(out) != 1 {
		t.Fatalf("Expected 1 image, got %d: %v", len(out), out)
	}
	if out[0].Path != root+"/Patterns/A1.jpg" {
		t.Errorf("Unexpected entry %q", out[0].Path)
	}
}

func TestScanImagesSkipsUnreadableDir(t *testing.T) {
	root := "/WallpaperBooks/Spring"
	c := newTestClient(&fakeFS{
		dirs: map[string][]os.FileInfo{
			root: {
				fakeInfo{name: "Broken", dir: true},
				fakeInfo{name: "Good", dir: true},
				fakeInfo{name: "cover.jpg"},
			},
			root + "/Good": {fakeInfo{name: "A1.jpg"}},
		},
		errs: map[string]error{
			root + "/Broken": errors.New("permission denied"),
		},
	})

	out := c.ScanImages(context.Background(), root)
	if len(out) != 2 {
		t.Fatalf("Expected siblings of the broken directory to survive, got %d: %v", len(out), out)
	}
	if out[0].Name != "A1.jpg" || out[1].Name != "cover.jpg" {
		t.Errorf("Unexpected entries: %v, %v", out[0].Name, out[1].Name)
	}
}

func TestListTimesOutOnWedgedCall(t *testing.T) {
	c := newTestClient(&fakeFS{block: make(chan struct{})})
	c.opTimeout = 10 * time.Millisecond

	start := time.Now()
	_, err := c.List(context.Background(), "/WallpaperBooks")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("List did not return promptly after the deadline")
	}
}

func TestReadTimesOutOnWedgedCall(t *testing.T) {
	c := newTestClient(&fakeFS{block: make(chan struct{})})
	c.opTimeout = 10 * time.Millisecond

	_, err := c.Read(context.Background(), "/WallpaperBooks/Spring/data.xlsx")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
}

func TestListAndRead(t *testing.T) {
	root := "/WallpaperBooks/Spring"
	c := newTestClient(&fakeFS{
		dirs: map[string][]os.FileInfo{
			root: {
				fakeInfo{name: "Patterns", dir: true},
				fakeInfo{name: "data.xlsx"},
			},
		},
		files: map[string][]byte{root + "/data.xlsx": []byte("sheet bytes")},
	})

	entries, err := c.List(context.Background(), root)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || !entries[0].IsDir() || entries[1].IsDir() {
		t.Fatalf("Unexpected entries: %+v", entries)
	}

	data, err := c.Read(context.Background(), root+"/data.xlsx")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "sheet bytes" {
		t.Errorf("Unexpected data %q", data)
	}
}
