package predict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SelectPolicy decides which training run provides the model when several
// exist.
type SelectPolicy string

const (
	SelectExplicit    SelectPolicy = "explicit"
	SelectLatest      SelectPolicy = "latest"
	SelectFirst       SelectPolicy = "first"
	SelectInteractive SelectPolicy = "interactive"
)

func ParseSelectPolicy(s string) (SelectPolicy, error) {
	switch p := SelectPolicy(s); p {
	case SelectExplicit, SelectLatest, SelectFirst, SelectInteractive:
		return p, nil
	}
	return "", ConfigError(nil, "unknown selection policy %q", s)
}

// ModelSelector finds trained weights under a runs/detect style layout:
//
//	<RunsDir>/train*/weights/<Artifact>
type ModelSelector struct {
	RunsDir  string
	Artifact string
	Policy   SelectPolicy
	// Path is used as-is by SelectExplicit.
	Path string

	// In and Out drive SelectInteractive.
	In  io.Reader
	Out io.Writer
}

type trainRun struct {
	name    string
	modTime int64
}

// Select returns the model path chosen by the policy.
func (s *ModelSelector) Select() (string, error) {
	if s.Policy == SelectExplicit || s.Path != "" {
		if s.Path == "" {
			return "", ConfigError(nil, "explicit model selection needs a path")
		}
		if _, err := os.Stat(s.Path); err != nil {
			return "", LoadError(err, "specified model path does not exist: %s", s.Path)
		}
		return s.Path, nil
	}

	runs, err := s.runs()
	if err != nil {
		return "", err
	}

	var chosen string
	switch s.Policy {
	case SelectLatest, "":
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].modTime > runs[j].modTime })
		chosen = runs[0].name
	case SelectFirst:
		chosen = runs[0].name
	case SelectInteractive:
		idx, err := s.prompt(runs)
		if err != nil {
			return "", err
		}
		chosen = runs[idx].name
	default:
		return "", ConfigError(nil, "unknown selection policy %q", s.Policy)
	}

	path := filepath.Join(s.RunsDir, chosen, "weights", s.Artifact)
	if _, err := os.Stat(path); err != nil {
		return "", LoadError(err, "model file not found at %s", path)
	}
	return path, nil
}

// runs lists train* folders sorted by name.
func (s *ModelSelector) runs() ([]trainRun, error) {
	entries, err := os.ReadDir(s.RunsDir)
	if err != nil {
		return nil, ConfigError(err, "detection path %s does not exist", s.RunsDir)
	}
	var runs []trainRun
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "train") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, trainRun{name: e.Name(), modTime: info.ModTime().UnixNano()})
	}
	if len(runs) == 0 {
		return nil, ConfigError(nil, "no training folders found in %s", s.RunsDir)
	}
	return runs, nil
}

func (s *ModelSelector) prompt(runs []trainRun) (int, error) {
	if len(runs) == 1 {
		return 0, nil
	}
	if s.In == nil || s.Out == nil {
		return 0, ConfigError(nil, "interactive selection needs a terminal")
	}

	fmt.Fprintln(s.Out, "Multiple training folders found. Select one:")
	for i, r := range runs {
		fmt.Fprintf(s.Out, "  %d: %s\n", i, r.name)
	}

	scanner := bufio.NewScanner(s.In)
	for {
		fmt.Fprint(s.Out, "Enter number: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, ConfigError(err, "couldn't read selection")
			}
			return 0, ConfigError(nil, "no training folder selected")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && choice >= 0 && choice < len(runs) {
			return choice, nil
		}
		fmt.Fprintf(s.Out, "Invalid choice. Please enter a number between 0 and %d\n", len(runs)-1)
	}
}
