package utils

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar renders a single-line progress bar to a writer.
type ProgressBar struct {
	mu          sync.Mutex
	out         io.Writer
	total       int
	current     int
	description string
	startTime   time.Time
	width       int
	showETA     bool
	done        bool
}

// NewProgressBar creates a new progress bar
func NewProgressBar(out io.Writer, total int, description string) *ProgressBar {
	return &ProgressBar{
		out:         out,
		total:       total,
		description: description,
		startTime:   time.Now(),
		width:       30,
		showETA:     true,
	}
}

// Update sets the progress. It matches apk.ProgressFunc so it can be passed
// straight to an extraction. The bar finishes itself when done reaches total.
func (pb *ProgressBar) Update(done, total int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.done {
		return
	}
	pb.current = done
	if total > 0 {
		pb.total = total
	}
	pb.render()
	if pb.total > 0 && pb.current >= pb.total {
		pb.finish()
	}
}

// Increment increments the progress by 1
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	current, total := pb.current+1, pb.total
	pb.mu.Unlock()
	pb.Update(current, total)
}

// Finish completes the progress bar
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.done {
		return
	}
	pb.current = pb.total
	pb.render()
	pb.finish()
}

func (pb *ProgressBar) finish() {
	pb.done = true
	fmt.Fprintln(pb.out)
}

func (pb *ProgressBar) render() {
	if pb.total <= 0 {
		return
	}

	current := pb.current
	if current > pb.total {
		current = pb.total
	}
	percentage := float64(current) / float64(pb.total) * 100
	filled := pb.width * current / pb.total

	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)

	var eta string
	if pb.showETA && current > 0 && current < pb.total {
		elapsed := time.Since(pb.startTime)
		totalTime := time.Duration(float64(elapsed) * float64(pb.total) / float64(current))
		if remaining := totalTime - elapsed; remaining > time.Second {
			eta = fmt.Sprintf(" ETA: %v", remaining.Round(time.Second))
		}
	}

	fmt.Fprintf(pb.out, "\r%s [%s] %.0f%% (%d/%d)%s",
		pb.description, bar, percentage, current, pb.total, eta)
}
