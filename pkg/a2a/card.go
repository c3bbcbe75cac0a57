package a2a

import (
	"fmt"
	"strings"

	"github.com/agentmesh/agentmesh/pkg/errors"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
)

// AgentCapabilities describes the capabilities of an agent.
type AgentCapabilities struct {
	// Streaming indicates if the agent supports streaming responses
	Streaming bool `json:"streaming,omitempty"`
	// Batch indicates if the agent supports batched requests
	Batch bool `json:"batch,omitempty"`
	// MultiModal indicates if the agent accepts non-text parts
	MultiModal bool `json:"multi_modal,omitempty"`
	// PersistentSessions indicates if the agent keeps session state
	// across calls
	PersistentSessions bool `json:"persistent_sessions,omitempty"`
}

// SkillExample is one example input/output pair for a skill.
type SkillExample struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
}

// Skill defines a specific capability offered by an agent.
type Skill struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Examples    []SkillExample `json:"examples,omitempty"`
}

/*
AgentCard is the self-describing capability document an agent exposes for
discovery. The Name is the unique key used everywhere else: two agents must
not share a name within one orchestrator's registry. A card is immutable
once fetched; re-fetch to refresh.
*/
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	Version            string            `json:"version"`
	URL                string            `json:"url"`
	DefaultInputModes  []string          `json:"default_input_modes,omitempty"`
	DefaultOutputModes []string          `json:"default_output_modes,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []Skill           `json:"skills"`
	Tags               []string          `json:"tags,omitempty"`
	Metadata           map[string]any    `json:"metadata,omitempty"`
}

// Validate checks the card invariants relevant to registries.
func (card *AgentCard) Validate() *errors.RpcError {
	if card.Name == "" {
		return errors.ErrInvalidParams.WithMessagef("agent card has no name")
	}

	if card.URL == "" {
		return errors.ErrInvalidParams.WithMessagef("agent card %q has no url", card.Name)
	}

	return nil
}

/*
NewAgentCardFromConfig builds an agent card from viper config. Skills are
referenced by key and resolved from the top-level skills section.
*/
func NewAgentCardFromConfig(key string) AgentCard {
	v := viper.GetViper()
	skillKeys := v.GetStringSlice(fmt.Sprintf("agent.%s.skills", key))

	skills := make([]Skill, len(skillKeys))

	for i, skill := range skillKeys {
		skills[i] = NewSkillFromConfig(skill)
	}

	return AgentCard{
		Name:               v.GetString(fmt.Sprintf("agent.%s.name", key)),
		Description:        v.GetString(fmt.Sprintf("agent.%s.description", key)),
		Version:            v.GetString(fmt.Sprintf("agent.%s.version", key)),
		URL:                v.GetString(fmt.Sprintf("agent.%s.url", key)),
		DefaultInputModes:  v.GetStringSlice(fmt.Sprintf("agent.%s.input_modes", key)),
		DefaultOutputModes: v.GetStringSlice(fmt.Sprintf("agent.%s.output_modes", key)),
		Capabilities: AgentCapabilities{
			Streaming:          v.GetBool(fmt.Sprintf("agent.%s.capabilities.streaming", key)),
			Batch:              v.GetBool(fmt.Sprintf("agent.%s.capabilities.batch", key)),
			MultiModal:         v.GetBool(fmt.Sprintf("agent.%s.capabilities.multi_modal", key)),
			PersistentSessions: v.GetBool(fmt.Sprintf("agent.%s.capabilities.persistent_sessions", key)),
		},
		Skills: skills,
		Tags:   v.GetStringSlice(fmt.Sprintf("agent.%s.tags", key)),
	}
}

func NewSkillFromConfig(skill string) Skill {
	v := viper.GetViper()

	return Skill{
		ID:          v.GetString(fmt.Sprintf("skills.%s.id", skill)),
		Name:        v.GetString(fmt.Sprintf("skills.%s.name", skill)),
		Description: v.GetString(fmt.Sprintf("skills.%s.description", skill)),
		Tags:        v.GetStringSlice(fmt.Sprintf("skills.%s.tags", skill)),
	}
}

func (card *AgentCard) String() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	sectionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	indent := "   "
	bullet := "│ "

	sb.WriteString(headerStyle.Render("Agent Card") + "\n")
	sb.WriteString(bullet + labelStyle.Render("Name: ") + valueStyle.Render(card.Name) + "\n")
	if card.Description != "" {
		sb.WriteString(bullet + labelStyle.Render("Description: ") + valueStyle.Render(card.Description) + "\n")
	}
	sb.WriteString(bullet + labelStyle.Render("URL: ") + valueStyle.Render(card.URL) + "\n")
	sb.WriteString(bullet + labelStyle.Render("Version: ") + valueStyle.Render(card.Version) + "\n")

	sb.WriteString("\n" + sectionStyle.Render("Capabilities") + "\n")
	sb.WriteString(bullet + labelStyle.Render("Streaming: ") + valueStyle.Render(fmt.Sprintf("%v", card.Capabilities.Streaming)) + "\n")
	sb.WriteString(bullet + labelStyle.Render("Batch: ") + valueStyle.Render(fmt.Sprintf("%v", card.Capabilities.Batch)) + "\n")
	sb.WriteString(bullet + labelStyle.Render("Multi-Modal: ") + valueStyle.Render(fmt.Sprintf("%v", card.Capabilities.MultiModal)) + "\n")
	sb.WriteString(bullet + labelStyle.Render("Persistent Sessions: ") + valueStyle.Render(fmt.Sprintf("%v", card.Capabilities.PersistentSessions)) + "\n")

	if len(card.Tags) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("Tags") + "\n")
		sb.WriteString(bullet + valueStyle.Render(strings.Join(card.Tags, ", ")) + "\n")
	}

	if len(card.Skills) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("Skills") + "\n")
		for i, skill := range card.Skills {
			sb.WriteString(bullet + labelStyle.Render(fmt.Sprintf("Skill %d", i+1)) + "\n")
			sb.WriteString(bullet + indent + labelStyle.Render("ID: ") + valueStyle.Render(skill.ID) + "\n")
			sb.WriteString(bullet + indent + labelStyle.Render("Name: ") + valueStyle.Render(skill.Name) + "\n")
			if skill.Description != "" {
				sb.WriteString(bullet + indent + labelStyle.Render("Description: ") + valueStyle.Render(skill.Description) + "\n")
			}
			if len(skill.Tags) > 0 {
				sb.WriteString(bullet + indent + labelStyle.Render("Tags: ") + valueStyle.Render(strings.Join(skill.Tags, ", ")) + "\n")
			}
		}
	}

	return sb.String()
}
