package api

import "github.com/danielgtaylor/huma/v2"

// EnvelopeVersion is bumped when the envelope shape changes.
const EnvelopeVersion = 1

// APIEnvelope wraps every successful response and plain errors.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps structured errors.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in the versioned envelope.
// Structured errors keep their code and details; any other error is
// flattened to its message.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case error:
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   body.Error(),
		}, nil
	default:
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: true,
			Data:    v,
		}, nil
	}
}
