package seen

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileArchive stores one ID per line in a plain text file that is only ever appended to.
type FileArchive struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

func NewFileArchive(path string) *FileArchive {
	return &FileArchive{path: path}
}

// Load reads every ID in the file. A missing file is an empty archive. Blank lines are ignored.
func (a *FileArchive) Load() ([]ID, error) {
	f, err := os.Open(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []ID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, ID(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a.path, err)
	}
	return ids, nil
}

func (a *FileArchive) Append(id ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		if err := os.MkdirAll(filepath.Dir(a.path), 0750); err != nil {
			return err
		}
		f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			return err
		}
		a.f = f
	}
	if _, err := a.f.WriteString(string(id) + "\n"); err != nil {
		return err
	}
	return a.f.Sync()
}

func (a *FileArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}
