package filelog

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Journal is an append-only line file. Each AppendLine is flushed before
// returning so a crash loses at most the line being written.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{
		path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

func (j *Journal) AppendLine(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.w.WriteString(line); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

func (j *Journal) Lines() ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	return out, scanner.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.w.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

var _ ports.Journal = (*Journal)(nil)

// Set lazily opens one journal per name under a directory. It backs the
// per-model activity journals.
type Set struct {
	mu   sync.Mutex
	dir  string
	open map[string]*Journal
	obs  ports.Observability
}

func NewSet(dir string, obs ports.Observability) *Set {
	return &Set{
		dir:  dir,
		open: make(map[string]*Journal),
		obs:  obs,
	}
}

// For returns the journal for a name, opening it on first use. Returns nil
// when the journal cannot be opened; the failure is logged.
func (s *Set) For(name string) ports.Journal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.open[name]; ok {
		return j
	}
	j, err := Open(filepath.Join(s.dir, name))
	if err != nil {
		s.obs.LogError("opening journal failed", err,
			ports.Field{Key: "name", Value: name})
		return nil
	}
	s.open[name] = j
	return j
}

func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, j := range s.open {
		if err := j.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.open = make(map[string]*Journal)
	return firstErr
}
