package logging

import (
	"errors"
	"os"
	"sync"
)

var errFileClosed = errors.New("log_file_closed")

// cappedFile appends to a file and starts it over once the next write would
// push it past max bytes.
type cappedFile struct {
	mu   sync.Mutex
	f    *os.File
	size int64
	max  int64
}

func openCappedFile(path string, maxMB int) (*cappedFile, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &cappedFile{f: f, size: info.Size(), max: int64(maxMB) << 20}, nil
}

func (c *cappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return 0, errFileClosed
	}
	if c.size > 0 && c.size+int64(len(p)) > c.max {
		// O_APPEND writes land at the new end after truncation.
		if err := c.f.Truncate(0); err != nil {
			return 0, err
		}
		c.size = 0
	}
	n, err := c.f.Write(p)
	c.size += int64(n)
	return n, err
}

func (c *cappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}
