package volc

import (
	"strings"

	"github.com/tidwall/gjson"
)

// resultURLPaths are probed in priority order on the resolved result payload.
var resultURLPaths = []string{"video_url", "urls.0", "data.video_url", "data.urls.0"}

// statusPaths locate the task status on the resolved result payload.
var statusPaths = []string{"status", "task_status"}

const malformedDetail = "malformed response: success status without a video url"

// normalizeResult reduces a raw provider result envelope to a Result. A
// success status without an extractable URL is reported as a failure, never
// as a success.
func normalizeResult(body []byte) Result {
	payload := resolvePayload(body)

	switch normalizeStatus(extractStatus(payload)) {
	case StatusSucceeded:
		url, ok := extractVideoURL(payload)
		if !ok {
			return Result{Status: StatusFailed, Detail: malformedDetail}
		}
		return Result{Status: StatusSucceeded, VideoURL: url}
	case StatusFailed:
		return Result{Status: StatusFailed, Detail: failureDetail(payload)}
	default:
		return Result{Status: StatusRunning}
	}
}

// resolvePayload returns the JSON node holding the actual task result. The
// envelope is the "data" field when present, otherwise the whole response.
// When the envelope carries a "resp_data" field, that field holds the real
// payload and may be double-encoded: either a JSON string or a native object.
func resolvePayload(body []byte) gjson.Result {
	payload := gjson.GetBytes(body, "data")
	if !payload.Exists() {
		payload = gjson.ParseBytes(body)
	}

	respData := payload.Get("resp_data")
	if !respData.Exists() {
		return payload
	}
	if respData.Type == gjson.String {
		return gjson.Parse(respData.String())
	}
	return respData
}

// normalizeStatus maps the provider's status vocabulary, case-insensitively,
// onto the canonical outcomes. Anything outside the known spellings,
// including an absent status, means the task is still running.
func normalizeStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "succeeded", "success", "succeed", "done":
		return StatusSucceeded
	case "failed", "fail", "failure", "error":
		return StatusFailed
	default:
		return StatusRunning
	}
}

func extractStatus(payload gjson.Result) string {
	for _, path := range statusPaths {
		if v := payload.Get(path); v.Exists() {
			return v.String()
		}
	}
	return ""
}

func extractVideoURL(payload gjson.Result) (string, bool) {
	for _, path := range resultURLPaths {
		if v := payload.Get(path); v.Exists() && v.String() != "" {
			return v.String(), true
		}
	}
	return "", false
}

func failureDetail(payload gjson.Result) string {
	for _, path := range []string{"reason", "message"} {
		if v := payload.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return "generation failed"
}

// extractTaskID reads the provider-assigned task id from a submit response.
func extractTaskID(body []byte) string {
	for _, path := range []string{"data.task_id", "task_id"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// errorDetail extracts the provider's error message from a non-2xx response
// body, preserved verbatim. Falls back to the raw body.
func errorDetail(body []byte) string {
	if msg := gjson.GetBytes(body, "ResponseMetadata.Error.Message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	return strings.TrimSpace(string(body))
}
