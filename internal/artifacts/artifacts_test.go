package artifacts

import (
	"errors"
	"strings"
	"testing"
)

func TestScanCollectsURLsAfterBanner(t *testing.T) {
	output := strings.Join([]string{
		"watcher: observed out.csv",
		"uploading out.csv",
		"https://example.com/ignored-before-banner",
		Banner,
		"https://files.example.com/runs/7/out.csv",
		"  http://files.example.com/runs/7/report.pdf  ",
		"upload summary: 2 files",
		"",
		"https://files.example.com/runs/7/log.txt",
	}, "\n")

	report, err := Scan(strings.NewReader(output))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{
		"https://files.example.com/runs/7/out.csv",
		"http://files.example.com/runs/7/report.pdf",
		"https://files.example.com/runs/7/log.txt",
	}
	if len(report.URLs) != len(want) {
		t.Fatalf("URLs = %v, want %v", report.URLs, want)
	}
	for i, url := range want {
		if report.URLs[i] != url {
			t.Fatalf("URLs[%d] = %q, want %q", i, report.URLs[i], url)
		}
	}
	if report.Empty() {
		t.Fatal("report with URLs must not be empty")
	}
}

func TestScanWithoutBannerIsEmpty(t *testing.T) {
	report, err := Scan(strings.NewReader("https://example.com/a\nhttps://example.com/b\n"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("URLs = %v, want none without a banner", report.URLs)
	}
}

func TestScanStringConvenience(t *testing.T) {
	report := ScanString(Banner + "\nhttps://example.com/out.bin\n")
	if len(report.URLs) != 1 || report.URLs[0] != "https://example.com/out.bin" {
		t.Fatalf("URLs = %v", report.URLs)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestScanPropagatesReadErrors(t *testing.T) {
	readErr := errors.New("stream torn down")
	if _, err := Scan(failingReader{err: readErr}); !errors.Is(err, readErr) {
		t.Fatalf("err = %v, want wrapped %v", err, readErr)
	}
}
