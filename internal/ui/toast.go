package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/sheettrack/sheettrack/internal/progress"
)

// ToastNotifier prints status write outcomes as one-line toasts.
type ToastNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewToastNotifier creates a notifier writing to w.
func NewToastNotifier(w io.Writer) *ToastNotifier {
	return &ToastNotifier{w: w}
}

// Notify implements progress.Notifier.
func (n *ToastNotifier) Notify(o progress.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()

	icon, title := RenderPass("✓"), RenderBold(o.Title)
	if o.Severity == progress.SeverityDestructive {
		icon, title = RenderFail("✗"), RenderFail(o.Title)
	}
	if o.Description == "" {
		fmt.Fprintf(n.w, "%s %s\n", icon, title)
		return
	}
	fmt.Fprintf(n.w, "%s %s: %s\n", icon, title, o.Description)
}
