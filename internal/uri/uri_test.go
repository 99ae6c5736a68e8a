package uri

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestIsAbsolute(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com/a", true},
		{"file:///tmp/a.xml", true},
		{"urn:x", true},
		{"classpath:org/x.xml", true},
		{"local.dtd", false},
		{"../a/b.dtd", false},
		{"C:/tmp/a.xml", false},
		{"", false},
		{":x", false},
		{"1a:b", false},
	}
	for _, tt := range tests {
		if got := IsAbsolute(tt.in); got != tt.want {
			t.Fatalf("IsAbsolute(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"relative file", "file:///tmp/cat1.xml", "local.dtd", "file:///tmp/local.dtd"},
		{"parent dir", "file:///tmp/a/cat.xml", "../b/x.dtd", "file:///tmp/b/x.dtd"},
		{"absolute ref", "file:///tmp/cat.xml", "http://example.com/x", "http://example.com/x"},
		{"http base", "http://example.com/cat/catalog.xml", "dtd/x.dtd", "http://example.com/cat/dtd/x.dtd"},
		{"empty ref", "file:///tmp/cat.xml", "", "file:///tmp/cat.xml"},
		{"classpath base", "classpath:/org/cat/catalog.xml", "x.dtd", "classpath:org/cat/x.dtd"},
		{"classpath abs ref", "file:///tmp/cat.xml", "classpath:/org/x.dtd", "classpath:org/x.dtd"},
		{"jar base", "jar:file:///tmp/a.zip!/cat/catalog.xml", "../x.dtd", "jar:file:///tmp/a.zip!/x.dtd"},
		{"fragment", "classpath:org/catalog.xml", "x.xml#frag", "classpath:org/x.xml#frag"},
		{"classpath directory", "classpath:catalog.xml", "dtd/", "classpath:dtd/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolveRejectsRelativeBase(t *testing.T) {
	if _, err := Resolve("cat.xml", "x.dtd"); err == nil {
		t.Fatalf("expected error for relative base")
	}
	if _, err := Resolve("urn:x:y", "x.dtd"); err == nil {
		t.Fatalf("expected error for opaque base")
	}
}

func TestForComparison(t *testing.T) {
	if got := ForComparison("classpath:/a/b", false); got != "classpath:a/b" {
		t.Fatalf("ForComparison classpath = %q", got)
	}
	if got := ForComparison("http://x/a", true); got != "https://x/a" {
		t.Fatalf("ForComparison merge = %q", got)
	}
	if got := ForComparison("http://x/a", false); got != "http://x/a" {
		t.Fatalf("ForComparison no merge = %q", got)
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a b", "c.xml")
	u, err := FileURI(p)
	if err != nil {
		t.Fatalf("FileURI() error = %v", err)
	}
	if Scheme(u) != "file" {
		t.Fatalf("scheme = %q, want file", Scheme(u))
	}
	back, err := FilePath(u)
	if err != nil {
		t.Fatalf("FilePath() error = %v", err)
	}
	if back != p {
		t.Fatalf("FilePath(FileURI(p)) = %q, want %q", back, p)
	}
}

func TestDirURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	got, err := DirURI("/tmp/cache")
	if err != nil {
		t.Fatalf("DirURI() error = %v", err)
	}
	if got != "file:///tmp/cache/" {
		t.Fatalf("DirURI() = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://example.com/a", "http://example.com/a"},
		{"http://example.com/a b", "http://example.com/a%20b"},
		{"file:///tmp/café.dtd", "file:///tmp/caf%C3%A9.dtd"},
		{"a%20b", "a%20b"},
		{"x{y}", "x%7By%7D"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
