package a2a

import (
	"encoding/base64"

	"github.com/agentmesh/agentmesh/pkg/errors"
)

/*
Part is a discriminated union over the content kinds a message may carry.
We keep it simple by embedding all optional fields in a single struct, which
avoids heavy custom JSON marshalling logic while remaining spec compliant.

Exactly ONE payload field should be populated according to the Type field:
Text for text parts, Data+MimeType for binary parts (data, image, audio,
video), FilePath for file references.
*/
type Part struct {
	Type PartType `json:"type"`

	Text     string         `json:"text,omitempty"`
	Data     string         `json:"data,omitempty"` // base64
	MimeType string         `json:"mime_type,omitempty"`
	FilePath string         `json:"file_path,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PartType is the discriminator for a Part union.
type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeData  PartType = "data"
	PartTypeImage PartType = "image"
	PartTypeAudio PartType = "audio"
	PartTypeVideo PartType = "video"
	PartTypeFile  PartType = "file"
)

func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

func NewDataPart(mimeType string, data []byte) Part {
	return Part{
		Type:     PartTypeData,
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}
}

func NewFilePart(path string) Part {
	return Part{
		Type:     PartTypeFile,
		FilePath: path,
	}
}

// Validate checks the union invariant: a known type carrying its payload.
func (part *Part) Validate() *errors.RpcError {
	switch part.Type {
	case PartTypeText:
		if part.Text == "" {
			return errors.ErrInvalidParams.WithMessagef("text part has no text")
		}
	case PartTypeData, PartTypeImage, PartTypeAudio, PartTypeVideo:
		if part.Data == "" {
			return errors.ErrInvalidParams.WithMessagef("%s part has no data", part.Type)
		}
	case PartTypeFile:
		if part.FilePath == "" {
			return errors.ErrInvalidParams.WithMessagef("file part has no file_path")
		}
	default:
		return errors.ErrInvalidParams.WithMessagef("unknown part type: %q", part.Type)
	}

	return nil
}
