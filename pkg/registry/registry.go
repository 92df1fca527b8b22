package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DefaultPath is where catalogctl looks for the registry.
const DefaultPath = "configs/activity-registry.json"

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// TaskTypes lists every registered task type, sorted.
func (r *ActivityRegistry) TaskTypes() []string {
	out := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		out = append(out, a.TaskType)
	}
	sort.Strings(out)
	return out
}

// Validate reports every problem found, not only the first.
func (r *ActivityRegistry) Validate() []string {
	var problems []string
	ids := map[string]bool{}
	types := map[string]bool{}
	for i, a := range r.Activities {
		where := fmt.Sprintf("activities[%d]", i)
		if a.ID == "" {
			problems = append(problems, where+": id is empty")
		} else if ids[a.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate id %q", where, a.ID))
		}
		ids[a.ID] = true

		if a.TaskType == "" {
			problems = append(problems, where+": taskType is empty")
		} else if types[a.TaskType] {
			problems = append(problems, fmt.Sprintf("%s: duplicate taskType %q", where, a.TaskType))
		}
		types[a.TaskType] = true

		switch a.Category {
		case CategoryDistributed, CategoryWholeJob, "":
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown category %q", where, a.Category))
		}
		if _, err := a.TimeoutDuration(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: timeout %q: %v", where, a.Timeout, err))
		}
		if a.Retries < 0 {
			problems = append(problems, where+": retries must not be negative")
		}
	}
	return problems
}

// Missing returns the task types in want that the registry does not document.
func (r *ActivityRegistry) Missing(want []string) []string {
	var out []string
	for _, t := range want {
		if _, ok := r.Find(t); !ok {
			out = append(out, t)
		}
	}
	return out
}
