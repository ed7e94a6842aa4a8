package formatting

import (
	"sort"
	"time"

	"servermanager/internal/fleet"
	"servermanager/internal/orchestrator"
)

// ServerRow is the status of one profile.
type ServerRow struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	State      string        `json:"state" yaml:"state"`
	Health     string        `json:"health" yaml:"health"`
	PID        int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	CPUPercent float64       `json:"cpuPercent,omitempty" yaml:"cpuPercent,omitempty"`
	MemoryRSS  uint64        `json:"memoryRSS,omitempty" yaml:"memoryRSS,omitempty"`
	Uptime     time.Duration `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	AutoUpdate bool          `json:"autoUpdate" yaml:"autoUpdate"`
	AutoBackup bool          `json:"autoBackup" yaml:"autoBackup"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// BuildRows joins profiles with the service statuses of the orchestrator.
// Profiles without a service are reported as Unknown.
func BuildRows(profiles []*fleet.Profile, statuses []orchestrator.ServiceStatus) []ServerRow {
	byID := make(map[string]orchestrator.ServiceStatus, len(statuses))
	for _, s := range statuses {
		byID[fleet.NormalizeID(s.Name)] = s
	}

	rows := make([]ServerRow, 0, len(profiles))
	for _, p := range profiles {
		row := ServerRow{
			ID:         p.ID,
			Name:       p.DisplayName(),
			State:      "Unknown",
			Health:     "Unknown",
			AutoUpdate: p.AutoUpdate,
			AutoBackup: p.AutoBackup,
		}
		if s, ok := byID[p.Key()]; ok {
			row.State = s.State
			row.Health = s.Health
			if s.Error != nil {
				row.Error = s.Error.Error()
			}
			if pid, ok := s.Data["pid"].(int); ok {
				row.PID = pid
			}
			if cpu, ok := s.Data["cpuPercent"].(float64); ok {
				row.CPUPercent = cpu
			}
			if mem, ok := s.Data["memoryRSS"].(uint64); ok {
				row.MemoryRSS = mem
			}
			if up, ok := s.Data["uptime"].(time.Duration); ok {
				row.Uptime = up
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return fleet.NormalizeID(rows[i].ID) < fleet.NormalizeID(rows[j].ID) })
	return rows
}
