package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fjmerc/filesender-client/internal/transfer"
	"github.com/fjmerc/filesender-client/internal/utils"
)

// progressPrinter redraws a single progress line.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	drawn   bool
}

func newProgressPrinter(w io.Writer, enabled bool) *progressPrinter {
	return &progressPrinter{w: w, enabled: enabled}
}

func (p *progressPrinter) update(f transfer.File, complete bool, uploaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if complete {
		if p.drawn {
			fmt.Fprintln(p.w)
			p.drawn = false
		}
		fmt.Fprintf(p.w, "✓ %s (%s)\n", f.Name, utils.FormatBytes(f.Size))
	}
	if !p.enabled || total <= 0 {
		return
	}

	percentage := int(uploaded * 100 / total)
	fmt.Fprintf(p.w, "\r%s %3d%% (%s/%s) %s",
		progressBar(percentage),
		percentage,
		utils.FormatBytes(uploaded),
		utils.FormatBytes(total),
		f.Name,
	)
	p.drawn = true
}

// clear ends the progress line so other output starts on a fresh line.
func (p *progressPrinter) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func progressBar(percentage int) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	width := 30
	filled := percentage * width / 100
	empty := width - filled
	return fmt.Sprintf("[%s%s]", strings.Repeat("█", filled), strings.Repeat("░", empty))
}
