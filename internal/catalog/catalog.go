// Package catalog holds the process-wide, read-only lists of avatars and
// wellness tasks.
//
// The data ships inside the binary (catalog.yaml via go:embed) and is parsed
// once at startup. Callers get copies, so nothing can mutate the shared lists.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sakif/wellness-tracker/internal/model"
)

//go:embed catalog.yaml
var defaultData []byte

// Catalog is the immutable avatar and task catalog.
type Catalog struct {
	avatars []model.Avatar
	tasks   []model.WellnessTask
}

type document struct {
	Avatars []model.Avatar       `yaml:"avatars"`
	Tasks   []model.WellnessTask `yaml:"wellness_tasks"`
}

// Default parses the embedded catalog. It panics on a malformed file since
// that can only be a build-time mistake.
func Default() *Catalog {
	c, err := Parse(defaultData)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog.yaml: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decoding yaml: %w", err)
	}
	if len(doc.Avatars) == 0 {
		return nil, fmt.Errorf("catalog: no avatars defined")
	}

	seen := make(map[int]bool, len(doc.Avatars))
	for _, a := range doc.Avatars {
		if a.ID <= 0 {
			return nil, fmt.Errorf("catalog: avatar %q has invalid id %d", a.Name, a.ID)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("catalog: duplicate avatar id %d", a.ID)
		}
		seen[a.ID] = true
	}

	seen = make(map[int]bool, len(doc.Tasks))
	for _, task := range doc.Tasks {
		if seen[task.ID] {
			return nil, fmt.Errorf("catalog: duplicate task id %d", task.ID)
		}
		seen[task.ID] = true
	}

	return &Catalog{avatars: doc.Avatars, tasks: doc.Tasks}, nil
}

// Avatars returns a copy of the avatar list in catalog order.
func (c *Catalog) Avatars() []model.Avatar {
	return append([]model.Avatar(nil), c.avatars...)
}

// Tasks returns a copy of the wellness task list in catalog order.
func (c *Catalog) Tasks() []model.WellnessTask {
	return append([]model.WellnessTask(nil), c.tasks...)
}

// Avatar looks up an avatar by id.
func (c *Catalog) Avatar(id int) (model.Avatar, bool) {
	for _, a := range c.avatars {
		if a.ID == id {
			return a, true
		}
	}
	return model.Avatar{}, false
}

// AvatarOrDefault resolves id, falling back to the first catalog entry.
func (c *Catalog) AvatarOrDefault(id int) model.Avatar {
	if a, ok := c.Avatar(id); ok {
		return a
	}
	return c.avatars[0]
}
