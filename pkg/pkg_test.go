package pkg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	if Name != "zero" {
		t.Errorf("Expected Name to be %q, got %q", "zero", Name)
	}
}

func TestVersion(t *testing.T) {
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version() != content {
		t.Errorf("Expected Version to be %q, got %q", content, Version())
	}
}

func TestAuthor(t *testing.T) {
	if !slices.ContainsFunc(Author, func(a AuthorInfo) bool {
		return a.Name == "ardnew" && a.Email == "andrew@ardnew.com"
	}) {
		t.Errorf("Expected Author to contain ardnew, got %v", Author)
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
		dir  string
		base string
	}{
		{"config", ConfigFile(), ConfigDir(), "config.0"},
		{"cache", ModuleCacheFile(), CacheDir(), "modules.json"},
		{"history", HistoryFile(), CacheDir(), "history"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if filepath.Dir(tt.path) != tt.dir || filepath.Base(tt.path) != tt.base {
				t.Errorf("path = %q, want %s in %s", tt.path, tt.base, tt.dir)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := ErrMkdir.Wrap(fs.ErrPermission)

	if !errors.Is(err, ErrMkdir) {
		t.Errorf("errors.Is(%v, ErrMkdir) = false", err)
	}

	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("errors.Is(%v, fs.ErrPermission) = false", err)
	}

	if got, want := err.Error(), "create directory: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if errors.Is(MakeErrorf("other"), ErrMkdir) {
		t.Error("unrelated chain matches ErrMkdir")
	}
}

func TestJoin(t *testing.T) {
	if err := Join(nil, nil); err != nil {
		t.Errorf("Join(nil, nil) = %v, want nil", err)
	}

	if err := Join(nil, fs.ErrClosed); err != fs.ErrClosed {
		t.Errorf("Join(nil, err) = %v, want err", err)
	}

	err := Join(fs.ErrClosed, fs.ErrExist)
	if !errors.Is(err, fs.ErrClosed) || !errors.Is(err, fs.ErrExist) {
		t.Errorf("Join() = %v, want both errors", err)
	}
}
