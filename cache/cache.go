// Package cache provides a library of wav samples found in scan paths.
// Samples are decoded on first use and shared by all players.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pipelined.dev/dsp/log"
	"pipelined.dev/dsp/signal"
	"pipelined.dev/dsp/wav"
)

// ErrNotFound is returned when a sample isn't found in scan paths.
var ErrNotFound = errors.New("sample not found")

const sampleExt = ".wav"

// Samples represents wav files found in scan paths. Sample name is the
// file name without extension. If names collide, the first scan path
// wins.
type Samples struct {
	Paths  []string
	files  map[string]string
	loaded map[string]*signal.Sample
	log    log.Logger
	mutex  sync.Mutex
}

// NewSamples scans paths for wav files. Scan errors are logged and don't
// stop the scan.
func NewSamples(logger log.Logger, paths ...string) *Samples {
	if logger == nil {
		logger = log.Silent
	}
	s := Samples{
		Paths:  uniquePaths(paths),
		files:  make(map[string]string),
		loaded: make(map[string]*signal.Sample),
		log:    logger,
	}
	for _, path := range s.Paths {
		if err := filepath.Walk(path, s.scan); err != nil {
			s.log.Warn(fmt.Sprintf("scan %s: %v", path, err))
		}
	}
	return &s
}

func (s *Samples) scan(path string, file os.FileInfo, err error) error {
	if err != nil {
		s.log.Warn(err)
		return nil
	}
	if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), sampleExt) {
		return nil
	}
	name := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
	if existing, ok := s.files[name]; ok {
		s.log.Debug(fmt.Sprintf("sample %s: %s shadowed by %s", name, path, existing))
		return nil
	}
	s.files[name] = path
	return nil
}

// Names returns sorted names of available samples.
func (s *Samples) Names() []string {
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the sample with the name. It's decoded once and reused
// after.
func (s *Samples) Get(name string) (*signal.Sample, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if sample, ok := s.loaded[name]; ok {
		return sample, nil
	}
	path, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %v", ErrNotFound, name, s.Paths)
	}
	sample, err := wav.Load(path)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", name, err)
	}
	s.loaded[name] = sample
	s.log.Debug(fmt.Sprintf("sample %s loaded from %s", name, path))
	return sample, nil
}

func uniquePaths(paths []string) []string {
	u := make([]string, 0, len(paths))
	m := make(map[string]bool)
	for _, val := range paths {
		if _, ok := m[val]; !ok {
			m[val] = true
			u = append(u, val)
		}
	}
	return u
}

func (s *Samples) String() string {
	var buf bytes.Buffer
	buf.WriteString("Scan paths:\n")
	for _, path := range s.Paths {
		buf.WriteString(fmt.Sprintf("\t%v\n", path))
	}
	buf.WriteString("Available samples:\n")
	names := s.Names()
	if len(names) == 0 {
		buf.WriteString("\t[No samples found]\n")
	}
	for _, name := range names {
		buf.WriteString(fmt.Sprintf("\t%v\t%v\n", name, s.files[name]))
	}
	return buf.String()
}
