package models

// Plan actions.
const (
	ActionCreate         = "create"
	ActionSkipExists     = "skip_exists"
	ActionSkipExcluded   = "skip_excluded"
	ActionSkipUnresolved = "skip_unresolved"
)

// MigrationResource describes a single object being considered for import.
type MigrationResource struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Action   string `json:"action"`
	DestID   string `json:"dest_id,omitempty"`
	Project  string `json:"project,omitempty"`  // owning project name
	Strategy string `json:"strategy,omitempty"` // how an application found its project
}

// MigrationPreview holds the results of the export + preflight check.
type MigrationPreview struct {
	SourceID      string                         `json:"source_id"`
	DestinationID string                         `json:"destination_id"`
	Resources     map[string][]MigrationResource `json:"resources"`
	Warnings      []string                       `json:"warnings"`
}

// Count returns how many resources carry the given action.
func (p *MigrationPreview) Count(action string) int {
	n := 0
	for _, items := range p.Resources {
		for _, item := range items {
			if item.Action == action {
				n++
			}
		}
	}
	return n
}
