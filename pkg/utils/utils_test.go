package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Message string `json:"message" validate:"required,max=10"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":""}`))
	var payload samplePayload

	err := DecodeJSON(req, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message")
}

func TestValidateRejectsBlankStrings(t *testing.T) {
	type labelled struct {
		Label string `validate:"required,notblank"`
	}

	err := Validate(labelled{Label: " \n\t "})
	require.Error(t, err)
	assert.Equal(t, "Label failed notblank", err.Error())
	assert.NoError(t, Validate(labelled{Label: " ok "}))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi","extra":1}`))
	var payload samplePayload

	require.Error(t, DecodeJSON(req, &payload))
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var payload samplePayload

	err := DecodeJSON(req, &payload)
	require.EqualError(t, err, "request body is empty")
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusTeapot, "nope")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SendSSEEvent(rec, rec, "delta", map[string]string{"content": "hi"})

	assert.Equal(t, "event: delta\ndata: {\"content\":\"hi\"}\n\n", rec.Body.String())
}
