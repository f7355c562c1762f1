package state

import "tekshila/internal/model"

// Gates are the enabled/visible flags of the dependent UI regions.
// They are always computed from a session snapshot and never stored.
type Gates struct {
	RepoPanelEnabled bool // repository and branch pickers
	PRPanelEnabled   bool // change-request panel (locked until connected)
	PRFormVisible    bool // form shown instead of the "generate first" placeholder
	GenerateEnabled  bool
	AnalyzeEnabled   bool
	ExportEnabled    bool // save / copy of the artifact
}

// ComputeGates derives the gates from s.
func ComputeGates(s model.Session) Gates {
	connected := s.Connection != nil
	hasArtifact := s.Artifact != nil
	return Gates{
		RepoPanelEnabled: connected,
		PRPanelEnabled:   connected,
		PRFormVisible:    connected && hasArtifact,
		GenerateEnabled:  len(s.Uploads) > 0,
		AnalyzeEnabled:   s.QualityFile != nil,
		ExportEnabled:    hasArtifact,
	}
}
