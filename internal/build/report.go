package build

import (
	"sort"
	"time"

	"github.com/conneroisu/sitepack/internal/profile"
)

// Report summarizes a successful pass.
type Report struct {
	// PassID correlates the pass's log lines. It never reaches the output.
	PassID    string
	Mode      profile.Mode
	OutputDir string
	Duration  time.Duration

	Views   int
	Pages   []string
	Icons   int
	Style   string
	Scripts []string
	Vendors []string

	Files int
	Bytes int64
}

// SortedPages returns the page names in lexical order.
func (r *Report) SortedPages() []string {
	out := append([]string(nil), r.Pages...)
	sort.Strings(out)
	return out
}
