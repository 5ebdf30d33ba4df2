package document

import "github.com/aretw0/autoflow/pkg/domain"

// Default returns the starter workflow shown on an empty canvas.
func Default() domain.Workflow {
	return domain.Workflow{
		ID:          "flow-1",
		Name:        "New Workflow",
		Description: "Designed by AI",
		StartNodeID: "trigger-1",
		Nodes: []domain.Node{
			{
				ID:       "trigger-1",
				Type:     domain.NodeTypeTrigger,
				Subtype:  domain.SubtypeManual,
				Config:   &domain.TriggerConfig{},
				Next:     "ai-1",
				Position: domain.Position{X: 100, Y: 300},
			},
			{
				ID:       "ai-1",
				Type:     domain.NodeTypeAIAgent,
				Config:   &domain.AgentConfig{SystemPrompt: "Say hello to the world"},
				Next:     "log-1",
				Position: domain.Position{X: 400, Y: 300},
			},
			{
				ID:       "log-1",
				Type:     domain.NodeTypeLog,
				Config:   &domain.LogConfig{Message: "Flow finished"},
				Position: domain.Position{X: 700, Y: 300},
			},
		},
	}
}
