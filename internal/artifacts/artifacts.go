// Package artifacts extracts uploaded-file URLs from watcher output. The
// watcher prints a banner once all observed files are uploaded, followed by
// one URL per line; everything else in the stream is operator noise.
package artifacts

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Banner marks the start of the uploaded-files listing in watcher output.
const Banner = "=== Uploaded Files ==="

// Report holds the URLs a watcher reported for one run, in print order.
type Report struct {
	URLs []string
}

// Empty reports whether the watcher listed any uploads.
func (r Report) Empty() bool {
	return len(r.URLs) == 0
}

// Scan reads watcher output and collects the URLs printed after the banner.
// Lines before the banner are ignored; after it, every http or https line is
// kept verbatim. URLs are never parsed or rewritten.
func Scan(r io.Reader) (Report, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var report Report
	listing := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !listing {
			if line == Banner {
				listing = true
			}
			continue
		}
		if isURL(line) {
			report.URLs = append(report.URLs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("scan watcher output: %w", err)
	}
	return report, nil
}

// ScanString parses captured watcher output held in memory.
func ScanString(output string) Report {
	report, _ := Scan(strings.NewReader(output))
	return report
}

func isURL(line string) bool {
	return strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://")
}
