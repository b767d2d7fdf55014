package routing

import (
	"fmt"

	"github.com/vidgo/server/internal/module/generation/provider"
)

// Route is one routing table entry: where a task type runs, where it
// falls back, and which vendor model it uses.
type Route struct {
	// Primary is the provider every call tries first. Never empty.
	Primary provider.Name

	// Backup is the failover target. Empty means the task type has no
	// second chance.
	Backup provider.Name

	// Model is the vendor model identifier passed through to the client.
	Model string
}

// Table maps every task type to its route. Loaded once at process start
// and never mutated afterwards.
type Table map[provider.TaskType]Route

// DefaultTable returns the production routing table.
func DefaultTable() Table {
	return Table{
		provider.TaskTextToImage:       {Primary: provider.NamePiAPI, Backup: provider.NamePollo, Model: "Qubico/flux1-dev"},
		provider.TaskImageToVideo:      {Primary: provider.NamePiAPI, Backup: provider.NamePollo, Model: "kling"},
		provider.TaskTextToVideo:       {Primary: provider.NamePollo, Backup: provider.NamePiAPI, Model: "kling-v1.6"},
		provider.TaskVideoToVideo:      {Primary: provider.NamePollo, Model: "runway-gen3"},
		provider.TaskInterior:          {Primary: provider.NamePiAPI, Backup: provider.NameGemini, Model: "Qubico/flux1-dev"},
		provider.TaskAvatar:            {Primary: provider.NameA2E, Model: "standard"},
		provider.TaskUpscale:           {Primary: provider.NamePiAPI, Model: "Qubico/image-toolkit"},
		provider.TaskKeyframes:         {Primary: provider.NamePollo, Backup: provider.NamePiAPI, Model: "kling-v1.6"},
		provider.TaskEffects:           {Primary: provider.NamePollo, Backup: provider.NamePiAPI, Model: "vidu-effects"},
		provider.TaskMultiModel:        {Primary: provider.NamePiAPI, Backup: provider.NamePollo, Model: "Qubico/flux1-schnell"},
		provider.TaskModeration:        {Primary: provider.NameGemini, Model: "gemini-1.5-flash"},
		provider.TaskBackgroundRemoval: {Primary: provider.NamePiAPI, Model: "Qubico/image-toolkit"},
	}
}

// Validate checks the table against the closed task type set and the
// registered clients. Every task type needs exactly one entry with a
// non-empty primary, and every referenced provider needs a client.
func (t Table) Validate(clients map[provider.Name]provider.Client) error {
	for _, taskType := range provider.AllTaskTypes() {
		route, ok := t[taskType]
		if !ok {
			return fmt.Errorf("routing table: no entry for task type %s", taskType)
		}
		if route.Primary == "" {
			return fmt.Errorf("routing table: task type %s has no primary provider", taskType)
		}
		if _, ok := clients[route.Primary]; !ok {
			return fmt.Errorf("routing table: task type %s names unregistered primary %s", taskType, route.Primary)
		}
		if route.Backup != "" {
			if _, ok := clients[route.Backup]; !ok {
				return fmt.Errorf("routing table: task type %s names unregistered backup %s", taskType, route.Backup)
			}
			if route.Backup == route.Primary {
				return fmt.Errorf("routing table: task type %s uses the same provider as primary and backup", taskType)
			}
		}
	}

	for taskType := range t {
		if !taskType.Valid() {
			return fmt.Errorf("routing table: entry for unknown task type %q", taskType)
		}
	}
	return nil
}
