package pool

import (
	"fmt"
	"log/slog"
	"os"
)

// FatalStoreError is a database failure escalated to process termination.
type FatalStoreError struct {
	Err error
}

func (e *FatalStoreError) Error() string {
	return fmt.Sprintf("fatal database error: %v", e.Err)
}

func (e *FatalStoreError) Unwrap() error { return e.Err }

// AbortFunc terminates the process. Tests replace it to observe escalation.
type AbortFunc func(err error)

func exitProcess(err error) {
	slog.Error("aborting process", "err", err)
	// stderr is usually redirected to the host's log, say it on stdout as well.
	fmt.Fprintln(os.Stdout, "indexer process aborted, the log may contain further details")
	os.Exit(1)
}
