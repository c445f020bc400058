package changelog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the on-disk changelog config file: an INI document with a
// single [changelog] section carrying the next changeset_id to hand out.
//
// No third-party INI library exists anywhere in the reference corpus this
// repository was grounded on, and the format here is a single section with
// a single integer key - a hand-rolled reader/writer is simpler and more
// auditable than pulling in a general-purpose INI parser for it. See
// DESIGN.md for the full justification.
type Config struct {
	path string
	rest []string // non-changeset_id lines, preserved verbatim on rewrite
}

// LoadConfig reads path and returns a Config positioned at its current
// changeset_id.
func LoadConfig(path string) (*Config, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("changelog: open config %s: %w", path, err)
	}
	defer f.Close()

	cfg := &Config{path: path}
	var (
		inSection bool
		id        int
		found     bool
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "[changelog]":
			inSection = true
			cfg.rest = append(cfg.rest, line)
			continue
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			inSection = false
		}
		if inSection {
			key, val, ok := strings.Cut(trimmed, "=")
			if ok && strings.TrimSpace(key) == "changeset_id" {
				n, err := strconv.Atoi(strings.TrimSpace(val))
				if err != nil {
					return nil, 0, NewConversionError("LoadConfig", path, ErrConfigMissing)
				}
				id = n
				found = true
				continue
			}
		}
		cfg.rest = append(cfg.rest, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("changelog: read config %s: %w", path, err)
	}
	if !found {
		return nil, 0, NewConversionError("LoadConfig", path, ErrConfigMissing)
	}
	return cfg, id, nil
}

// Save writes newID back to the [changelog] section, preserving every
// other line in the file.
func (c *Config) Save(newID int) error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("changelog: write config %s: %w", c.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	wroteID := false
	for _, line := range c.rest {
		trimmed := strings.TrimSpace(line)
		if trimmed == "[changelog]" {
			fmt.Fprintln(w, line)
			fmt.Fprintf(w, "changeset_id = %d\n", newID)
			wroteID = true
			continue
		}
		fmt.Fprintln(w, line)
	}
	if !wroteID {
		fmt.Fprintln(w, "[changelog]")
		fmt.Fprintf(w, "changeset_id = %d\n", newID)
	}
	return w.Flush()
}

// ChangesetIDSequence hands out sequential changeset IDs starting from the
// value stored in the config file, matching the original's generator:
// read once at the start of a conversion, advance purely in memory, and
// write the final value back exactly once when the conversion finishes.
type ChangesetIDSequence struct {
	cfg  *Config
	next int
}

// NewChangesetIDSequence loads the sequence's starting value from path.
func NewChangesetIDSequence(path string) (*ChangesetIDSequence, error) {
	cfg, id, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ChangesetIDSequence{cfg: cfg, next: id}, nil
}

// Next returns the next changeset ID and advances the in-memory sequence.
func (s *ChangesetIDSequence) Next() int {
	id := s.next
	s.next++
	return id
}

// Flush persists the current (not-yet-handed-out) value back to the
// config file. Call this once, after every changeset in a conversion has
// been assigned an ID.
func (s *ChangesetIDSequence) Flush() error {
	return s.cfg.Save(s.next)
}
