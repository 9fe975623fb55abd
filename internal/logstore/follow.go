package logstore

import (
	"context"
	"fmt"
	"io"

	"github.com/nxadm/tail"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

// Follow streams records appended to the log file at path until ctx is done.
// With fromStart the existing lines are replayed first. The header and
// malformed lines are skipped.
func Follow(ctx context.Context, path string, fromStart bool, fn func(types.Record)) error {
	config := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      true,
		Logger:    tail.DiscardingLogger,
	}
	if !fromStart {
		config.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, config)
	if err != nil {
		return fmt.Errorf("could not follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				log.Warnf("error reading %s: %v", path, line.Err)
				continue
			}
			if line.Text == constants.LogHeader || line.Text == "" {
				continue
			}
			rec, err := ParseRecord(line.Text)
			if err != nil {
				log.Debugf("skipping malformed log line %q: %v", line.Text, err)
				continue
			}
			fn(rec)
		}
	}
}
