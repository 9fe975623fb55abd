// Package logstore persists records to the append-only CSV log.
package logstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

var (
	// ErrMount means the backing directory could not be prepared.
	ErrMount = errors.New("log store mount failed")
	// ErrNotMounted is returned by file operations before Mount succeeds.
	ErrNotMounted = errors.New("log store not mounted")
	// ErrLogWrite means the log file could not be opened or written for append.
	ErrLogWrite = errors.New("log write failed")
	// ErrLogRead means the log file could not be opened for reading.
	ErrLogRead = errors.New("log read failed")
)

// Store owns the CSV log file inside a data directory. It is safe to read
// from other goroutines while the monitor appends.
type Store struct {
	dir     string
	name    string
	mounted atomic.Bool
}

// New returns a Store for constants.LogFileName inside dir. Nothing is
// touched on disk until Mount.
func New(dir string) *Store {
	return &Store{dir: dir, name: constants.LogFileName}
}

// Path returns the full path of the log file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.name)
}

// Mount creates the data directory if needed and verifies it is a writable
// directory.
func (s *Store) Mount() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrMount, err)
	}

	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMount, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrMount, s.dir)
	}

	probe, err := os.CreateTemp(s.dir, ".mount-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMount, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	s.mounted.Store(true)
	return nil
}

// EnsureLogFile creates the log file with its header line if it does not
// exist. An existing file is left untouched. It reports whether it created
// the file.
func (s *Store) EnsureLogFile() (bool, error) {
	if !s.mounted.Load() {
		return false, ErrNotMounted
	}

	// O_EXCL makes creation and the existence check one step.
	err := s.withFile(os.O_WRONLY|os.O_CREATE|os.O_EXCL, func(f *os.File) error {
		_, err := io.WriteString(f, constants.LogHeader+"\n")
		return err
	})
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not create log file %s: %w", s.Path(), err)
	}
	return true, nil
}

// Append writes rec as one CSV line. The file must already exist; a missing
// file is a write fault rather than a silent re-creation without a header.
func (s *Store) Append(rec types.Record) error {
	if !s.mounted.Load() {
		return ErrNotMounted
	}

	err := s.withFile(os.O_WRONLY|os.O_APPEND, func(f *os.File) error {
		_, err := io.WriteString(f, FormatRecord(rec))
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogWrite, err)
	}
	return nil
}

// ReadAll opens the log file for reading. The caller must Close the returned
// reader; the content is produced in file order and cannot be rewound.
func (s *Store) ReadAll() (io.ReadCloser, error) {
	if !s.mounted.Load() {
		return nil, ErrNotMounted
	}

	f, err := os.Open(s.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogRead, err)
	}
	return f, nil
}

// CopyTo streams the whole log file to w, closing the file on every path.
func (s *Store) CopyTo(w io.Writer) (int64, error) {
	rc, err := s.ReadAll()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	return io.Copy(w, rc)
}

// withFile opens the log file with flag, hands it to fn and always closes it.
// A close error is reported when fn itself succeeded.
func (s *Store) withFile(flag int, fn func(*os.File) error) (err error) {
	f, err := os.OpenFile(s.Path(), flag, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(f)
}

// FormatRecord renders rec as a newline-terminated CSV line.
func FormatRecord(rec types.Record) string {
	r := rec.Reading
	return fmt.Sprintf("%.2f,%.2f,%.3f,%.3f,%.4f,%s\n",
		r[types.WaterTemp], r[types.FlowRate], r[types.SO2], r[types.H2S], rec.Score, rec.Status)
}

// ParseRecord reverses FormatRecord. Values carry only the logged precision.
func ParseRecord(line string) (types.Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) != 6 {
		return types.Record{}, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}

	var rec types.Record
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return types.Record{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		if i < 4 {
			rec.Reading[i] = v
		} else {
			rec.Score = v
		}
	}

	status, ok := types.ParseStatus(fields[5])
	if !ok {
		return types.Record{}, fmt.Errorf("unknown status %q", fields[5])
	}
	rec.Status = status
	return rec, nil
}

// Stat logs the size of the log file; used at boot.
func (s *Store) Stat() {
	info, err := os.Stat(s.Path())
	if err != nil {
		log.Warnf("could not stat log file %s: %v", s.Path(), err)
		return
	}
	log.Infof("log file %s is %d bytes", s.Path(), info.Size())
}
