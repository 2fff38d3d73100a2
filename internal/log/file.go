package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	logDirPerm  = 0o750
	logFilePerm = 0o644
)

// dailyFile is an append-only writer that targets logs/agent_YYYYMMDD.log
// and switches to a fresh file when the calendar day changes. Long-running
// interactive sessions therefore never write into yesterday's file.
type dailyFile struct {
	mu  sync.Mutex
	dir string
	day string
	f   *os.File
}

func openDailyFile(dir string) (*dailyFile, error) {
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}
	d := &dailyFile{dir: dir}
	if err := d.rotate(time.Now()); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the file currently being written.
func (d *dailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return filepath.Join(d.dir, "agent_"+d.day+".log")
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if day := time.Now().Format("20060102"); day != d.day {
		if err := d.rotate(time.Now()); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// rotate must be called with d.mu held (or before d is shared).
func (d *dailyFile) rotate(now time.Time) error {
	if d.f != nil {
		_ = d.f.Close()
	}
	d.day = now.Format("20060102")
	path := filepath.Join(d.dir, "agent_"+d.day+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}
	d.f = f
	return nil
}
