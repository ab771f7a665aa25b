package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/validation"
)

type pictureRequest struct {
	URL string `json:"url" validate:"required,http_url,max=512"`
}

type shelfRequest struct {
	State string `json:"state" validate:"required,shelfstate"`
	Type  string `json:"type,omitempty" validate:"omitempty,booktype"`
	Page  int    `json:"page" validate:"gte=0"`
}

func TestValidator_Success(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(pictureRequest{URL: "https://cdn.example.com/a.png"}))
	assert.NoError(t, v.Validate(shelfRequest{State: "reading", Type: "manga", Page: 12}))
}

func TestValidator_FieldDetails(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{"missing url", pictureRequest{}, "url"},
		{"not a url", pictureRequest{URL: "picture"}, "url"},
		{"unknown state", shelfRequest{State: "finished"}, "state"},
		{"unknown type", shelfRequest{State: "read", Type: "comic"}, "type"},
		{"negative page", shelfRequest{State: "read", Page: -1}, "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_MaxLengthMessage(t *testing.T) {
	v := validation.New()
	long := "https://cdn.example.com/" + string(make([]byte, 600))

	err := v.Validate(pictureRequest{URL: long})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	details := domainErr.Details.(map[string]string)
	assert.NotEmpty(t, details["url"])
}
