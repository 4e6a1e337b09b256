package components

// FieldDescriptor describes a component field for UI display.
type FieldDescriptor struct {
	ID           string  // Unique identifier
	Label        string  // Display name
	Format       string  // Printf format (e.g., "%.2f")
	Min          float32 // Minimum value (for bars)
	Max          float32 // Maximum value (for bars)
	IsCentered   bool    // True for centered bar display
	IsBar        bool    // True to render as progress bar
	ShowWhenZero bool    // Show even when value is zero
	Group        string  // Logical grouping
}

// AgentFieldDescriptors returns metadata for Mood and Status fields.
func AgentFieldDescriptors() []FieldDescriptor {
	return []FieldDescriptor{
		{ID: "mood", Label: "Mood", Format: "%+.3f", Min: -1, Max: 1, IsCentered: true, IsBar: true, ShowWhenZero: true, Group: "state"},
		{ID: "episodes", Label: "Episodes", Format: "%.0f", ShowWhenZero: true, Group: "state"},
	}
}

// TraitFieldDescriptors returns metadata for Traits fields.
func TraitFieldDescriptors() []FieldDescriptor {
	return []FieldDescriptor{
		{ID: "sensitivity", Label: "Sensitivity", Format: "%.2f", Min: 0, Max: 1, IsBar: true, ShowWhenZero: true, Group: "traits"},
		{ID: "mobility_threshold", Label: "Mobility", Format: "%+.2f", Min: -1, Max: 1, IsCentered: true, IsBar: true, ShowWhenZero: true, Group: "traits"},
		{ID: "isolation_threshold", Label: "Isolation", Format: "%+.2f", Min: -1, Max: 1, IsCentered: true, IsBar: true, ShowWhenZero: true, Group: "traits"},
	}
}

// AgentGroups returns the logical groupings for agent fields in display order.
func AgentGroups() []string {
	return []string{"state", "traits"}
}

// GetAgentValue extracts an agent field value by ID.
func GetAgentValue(mood *Mood, status *Status, traits *Traits, fieldID string) float32 {
	switch fieldID {
	case "mood":
		return float32(mood.Value)
	case "episodes":
		return float32(status.Episodes)
	case "sensitivity":
		return float32(traits.Sensitivity)
	case "mobility_threshold":
		return float32(traits.MobilityThreshold)
	case "isolation_threshold":
		return float32(traits.IsolationThreshold)
	default:
		return 0
	}
}
