package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Load reads a newline-delimited instance file. Lines that are not valid
// JSON objects are counted as malformed and skipped; field-level validation
// is left to the caller so that broken-but-identifiable instances can still
// be reported.
func Load(path string) (instances []TaskInstance, malformed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Patch blobs routinely exceed the default scanner limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var inst TaskInstance
		if err := json.Unmarshal([]byte(line), &inst); err != nil {
			malformed++
			continue
		}
		instances = append(instances, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return instances, malformed, nil
}

// Sink partitions result records into the validated and failed streams.
// Records are flushed as they arrive so a long batch leaves a usable file
// behind even if interrupted.
type Sink struct {
	mu        sync.Mutex
	validated *os.File
	failed    *os.File
	nPassed   int
	nFailed   int
}

// OpenSink creates (truncating) the two output streams.
func OpenSink(validatedPath, failedPath string) (*Sink, error) {
	vf, err := os.Create(validatedPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", validatedPath, err)
	}
	ff, err := os.Create(failedPath)
	if err != nil {
		vf.Close()
		return nil, fmt.Errorf("create %s: %w", failedPath, err)
	}
	return &Sink{validated: vf, failed: ff}, nil
}

// Write appends one record to exactly one stream.
func (s *Sink) Write(rec Record, validated bool) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.InstanceID, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if validated {
		s.nPassed++
		_, err = s.validated.Write(data)
	} else {
		s.nFailed++
		_, err = s.failed.Write(data)
	}
	if err != nil {
		return fmt.Errorf("write record %s: %w", rec.InstanceID, err)
	}
	return nil
}

// Counts returns how many records went to each stream.
func (s *Sink) Counts() (validated, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nPassed, s.nFailed
}

// Close closes both streams.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	verr := s.validated.Close()
	ferr := s.failed.Close()
	if verr != nil {
		return verr
	}
	return ferr
}
