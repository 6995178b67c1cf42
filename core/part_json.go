package core

import (
	"encoding/json"
	"fmt"
)

// partEnvelope is the wire form of a Part. The Type discriminator selects the
// concrete payload field; exactly one payload field is populated per envelope.
type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	File             *FilePartFile     `json:"file,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

const (
	partTypeText             = "text"
	partTypeData             = "data"
	partTypeFile             = "file"
	partTypeFunctionCall     = "function_call"
	partTypeFunctionResponse = "function_response"
)

func encodePart(p Part) (partEnvelope, error) {
	switch v := p.(type) {
	case TextPart:
		return partEnvelope{Type: partTypeText, Text: v.Text, Metadata: v.Metadata}, nil
	case DataPart:
		return partEnvelope{Type: partTypeData, Data: v.Data, Metadata: v.Metadata}, nil
	case FilePart:
		f := v.File
		return partEnvelope{Type: partTypeFile, File: &f, Metadata: v.Metadata}, nil
	case FunctionCallPart:
		fc := v.FunctionCall
		return partEnvelope{Type: partTypeFunctionCall, FunctionCall: &fc, Metadata: v.Metadata}, nil
	case FunctionResponsePart:
		fr := v.FunctionResponse
		return partEnvelope{Type: partTypeFunctionResponse, FunctionResponse: &fr, Metadata: v.Metadata}, nil
	default:
		return partEnvelope{}, fmt.Errorf("unsupported part type %T", p)
	}
}

func decodePart(env partEnvelope) (Part, error) {
	switch env.Type {
	case partTypeText:
		return TextPart{Text: env.Text, Metadata: env.Metadata}, nil
	case partTypeData:
		return DataPart{Data: env.Data, Metadata: env.Metadata}, nil
	case partTypeFile:
		var f FilePartFile
		if env.File != nil {
			f = *env.File
		}
		return FilePart{File: f, Metadata: env.Metadata}, nil
	case partTypeFunctionCall:
		var fc FunctionCall
		if env.FunctionCall != nil {
			fc = *env.FunctionCall
		}
		return FunctionCallPart{FunctionCall: fc, Metadata: env.Metadata}, nil
	case partTypeFunctionResponse:
		var fr FunctionResponse
		if env.FunctionResponse != nil {
			fr = *env.FunctionResponse
		}
		return FunctionResponsePart{FunctionResponse: fr, Metadata: env.Metadata}, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", env.Type)
	}
}

// MarshalJSON encodes each part into its typed envelope.
func (c Content) MarshalJSON() ([]byte, error) {
	envs := make([]partEnvelope, 0, len(c.Parts))
	for _, p := range c.Parts {
		env, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}

	return json.Marshal(struct {
		Role  string         `json:"role,omitempty"`
		Parts []partEnvelope `json:"parts"`
	}{Role: c.Role, Parts: envs})
}

// UnmarshalJSON rehydrates concrete part types from their envelopes.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string         `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Role = raw.Role
	c.Parts = make([]Part, 0, len(raw.Parts))
	for _, env := range raw.Parts {
		p, err := decodePart(env)
		if err != nil {
			return err
		}
		c.Parts = append(c.Parts, p)
	}

	return nil
}
