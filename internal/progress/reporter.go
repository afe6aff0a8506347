// Package progress reports the progress of long CLI transfers.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback while bytes are transferred.
type Reporter interface {
	// Start begins a transfer of total bytes; total is -1 when unknown.
	Start(total int64, description string)
	Add(n int)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a CIReporter if the CI environment variable is set.
func NewReporter(w io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{w: w}
	}
	return &TerminalReporter{w: w}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int64, description string) {
	r.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Add(n int) {
	if r.bar != nil {
		_ = r.bar.Add(n)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints start and end lines suitable for CI logs.
type CIReporter struct {
	w           io.Writer
	description string
	done        int64
}

func (r *CIReporter) Start(total int64, description string) {
	r.description = description
	r.done = 0
	if total < 0 {
		fmt.Fprintf(r.w, "%s: starting\n", description)
		return
	}
	fmt.Fprintf(r.w, "%s: %s\n", description, humanize.Bytes(uint64(total)))
}

func (r *CIReporter) Add(n int) {
	r.done += int64(n)
}

func (r *CIReporter) Finish() {
	fmt.Fprintf(r.w, "%s: done (%s)\n", r.description, humanize.Bytes(uint64(r.done)))
}

// Copy copies src to dst, reporting every chunk to r.
func Copy(dst io.Writer, src io.Reader, total int64, description string, r Reporter) (int64, error) {
	r.Start(total, description)
	defer r.Finish()
	return io.Copy(io.MultiWriter(dst, reporterWriter{r}), src)
}

type reporterWriter struct{ r Reporter }

func (w reporterWriter) Write(p []byte) (int, error) {
	w.r.Add(len(p))
	return len(p), nil
}
