package cli

import (
	"context"
	"fmt"
	"os"
	"time"
)

// watchLoop polls the spec file's modification time and invokes render on
// every detected change, including once immediately. Each pass rebuilds
// everything from scratch, so no state leaks between cycles. A render
// failure is reported and watching continues; the loop exits when the
// context is canceled.
func watchLoop(ctx context.Context, path string, interval time.Duration, render func() error) error {
	if _, err := os.Stat(path); err != nil {
		return newUsageError(fmt.Sprintf("watch: cannot stat %s: %v", path, err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	for {
		if st, err := os.Stat(path); err == nil && st.ModTime().After(last) {
			last = st.ModTime()
			if rerr := render(); rerr != nil {
				fmt.Fprintf(os.Stderr, "render: %v\n", rerr)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
