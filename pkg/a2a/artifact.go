package a2a

/*
Artifact is the output of a task.
*/
type Artifact struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Index       int            `json:"index,omitempty"`
}

func NewTextArtifact(name string, text string) Artifact {
	return Artifact{
		Name:  name,
		Parts: []Part{NewTextPart(text)},
	}
}

func NewFileArtifact(name string, mimeType string, data []byte) Artifact {
	return Artifact{
		Name:  name,
		Parts: []Part{NewDataPart(mimeType, data)},
	}
}
