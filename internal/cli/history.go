package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/stackrig-io/stackrig/internal/logging"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// historyEntry is one line of the run history: which command ran, what
// it touched, and how it ended.
type historyEntry struct {
	Timestamp string         `json:"timestamp"`
	Command   string         `json:"command"`
	Region    string         `json:"region"`
	User      string         `json:"user"`
	Steps     []historyStep  `json:"steps,omitempty"`
	Summary   map[string]int `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// historyStep records the terminal state of one pipeline step.
type historyStep struct {
	Step   string `json:"step"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

// historyPath returns the path to the run history file.
func historyPath() string {
	return filepath.Join(".stackrig", "history.log")
}

// appendHistory appends the run to the history file. Recording is
// best-effort: a history failure never blocks or fails the command.
func appendHistory(command string, run *resource.Run) {
	entry := historyEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
		Region:    settings.Region,
		User:      currentUser(),
		Summary: map[string]int{
			"created": run.Count(resource.StatusCreated),
			"reused":  run.Count(resource.StatusReused),
			"warned":  run.Count(resource.StatusWarned),
			"failed":  run.Count(resource.StatusFailed),
		},
	}
	for _, o := range run.Outcomes {
		entry.Steps = append(entry.Steps, historyStep{
			Step:   o.Step,
			Kind:   string(o.Kind),
			Key:    o.Key,
			Status: string(o.Status),
			ID:     o.Handle.ProviderID,
		})
	}
	if err := run.Err(); err != nil {
		entry.Error = err.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(historyPath()), 0o755); err != nil {
		logging.Debug("run history not recorded", "error", err)
		return
	}
	f, err := os.OpenFile(historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logging.Debug("run history not recorded", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		logging.Debug("run history not recorded", "error", err)
	}
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("USERNAME"); user != "" {
		return user
	}
	return "unknown"
}
