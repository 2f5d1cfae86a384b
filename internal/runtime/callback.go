package runtime

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
)

// maxNotificationBody bounds inbound notification bodies.
const maxNotificationBody = 1 << 20

// notificationRocket turns an inbound gateway notification into a rocket whose params
// are the decoded body fields. The raw body and headers are kept for signature checks.
func notificationRocket(driver string, r *http.Request) (*domain.Rocket, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBody))
	if err != nil {
		return nil, domain.ErrInvalidParams("body", "failed to read notification body").WithCause(err)
	}

	params, err := decodeNotification(r.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	for k, v := range r.URL.Query() {
		if strings.HasPrefix(k, "_") && len(v) > 0 {
			params[k] = v[0]
		}
	}

	rocket := domain.NewRocket(driver, "callback").SetParams(params)
	rocket.Headers = r.Header.Clone()
	rocket.Body = string(body)
	return rocket, nil
}

// decodeNotification accepts form-encoded or JSON object bodies.
func decodeNotification(contentType string, body []byte) (map[string]any, error) {
	params := map[string]any{}
	if len(body) == 0 {
		return params, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, domain.ErrInvalidParams("body", "malformed form notification").WithCause(err)
		}
		for k := range form {
			params[k] = form.Get(k)
		}
		return params, nil
	}

	if err := json.Unmarshal(body, &params); err != nil {
		return nil, domain.ErrInvalidParams("body", "notification body must be a JSON object or form").WithCause(err)
	}
	return params, nil
}
