package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/coerce"
	"github.com/sakif/wellness-tracker/internal/service"
)

// Defaults for JSON request fields. A field that is missing, null, false,
// zero, empty or not a number takes the value below.
const (
	defaultTaskID   = 1
	defaultDuration = 0
	defaultAppName  = ""
	defaultAvatarID = 1
)

// maxBodyBytes caps JSON request bodies. Real ones are a few dozen bytes.
const maxBodyBytes = 64 << 10

// body is a decoded JSON object. Values are left untyped so each field can
// apply its own default.
type body map[string]any

// decodeBody reads a JSON object from the request. An empty body is treated
// as {}. Anything that is not a JSON object fails with ErrValidation.
func decodeBody(w http.ResponseWriter, r *http.Request) (body, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperror.ValidationFailed("body", "Invalid JSON body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return body{}, nil
	}

	var b body
	if err := sonic.Unmarshal(raw, &b); err != nil || b == nil {
		return nil, apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return b, nil
}

func (b body) taskID() int {
	return coerce.Int(b["task_id"], defaultTaskID)
}

// duration is in whole minutes; fractions are dropped.
func (b body) duration() int {
	return coerce.Int(b["duration"], defaultDuration)
}

func (b body) appName() string {
	return coerce.String(b["app_name"], defaultAppName)
}

func (b body) avatarID() int {
	return coerce.Int(b["avatar_id"], defaultAvatarID)
}

// registrationForm collects the raw registration fields. Numeric parsing and
// its defaults happen in the service.
func registrationForm(r *http.Request) service.Registration {
	return service.Registration{
		Name:       r.PostFormValue("name"),
		Age:        r.PostFormValue("age"),
		ScreenTime: r.PostFormValue("screen_time"),
		AvatarID:   r.PostFormValue("avatar_id"),
	}
}
