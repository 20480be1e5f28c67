package volc

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"succeeded", StatusSucceeded},
		{"SUCCESS", StatusSucceeded},
		{"Success", StatusSucceeded},
		{"succeed", StatusSucceeded},
		{"done", StatusSucceeded},
		{"failed", StatusFailed},
		{"FAILED", StatusFailed},
		{"Fail", StatusFailed},
		{"failure", StatusFailed},
		{"error", StatusFailed},
		{"in_queue", StatusRunning},
		{"generating", StatusRunning},
		{"", StatusRunning},
	}

	for _, tt := range tests {
		name := tt.raw
		if name == "" {
			name = "absent"
		}
		t.Run(name, func(t *testing.T) {
			if got := normalizeStatus(tt.raw); got != tt.want {
				t.Errorf("normalizeStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeResult_EnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Result
	}{
		{
			name: "flat payload",
			body: `{"status":"succeeded","video_url":"https://cdn.example.com/v1.mp4"}`,
			want: Result{Status: StatusSucceeded, VideoURL: "https://cdn.example.com/v1.mp4"},
		},
		{
			name: "data envelope",
			body: `{"code":10000,"data":{"status":"done","video_url":"https://cdn.example.com/v2.mp4"}}`,
			want: Result{Status: StatusSucceeded, VideoURL: "https://cdn.example.com/v2.mp4"},
		},
		{
			name: "resp_data as JSON string",
			body: `{"data":{"resp_data":"{\"status\":\"Success\",\"urls\":[\"https://cdn.example.com/v3.mp4\"]}"}}`,
			want: Result{Status: StatusSucceeded, VideoURL: "https://cdn.example.com/v3.mp4"},
		},
		{
			name: "resp_data as native object",
			body: `{"data":{"resp_data":{"status":"SUCCESS","video_url":"https://cdn.example.com/v4.mp4"}}}`,
			want: Result{Status: StatusSucceeded, VideoURL: "https://cdn.example.com/v4.mp4"},
		},
		{
			name: "task_status field",
			body: `{"data":{"task_status":"succeeded","video_url":"https://cdn.example.com/v5.mp4"}}`,
			want: Result{Status: StatusSucceeded, VideoURL: "https://cdn.example.com/v5.mp4"},
		},
		{
			name: "still running",
			body: `{"data":{"status":"in_queue"}}`,
			want: Result{Status: StatusRunning},
		},
		{
			name: "absent status",
			body: `{"data":{"progress":40}}`,
			want: Result{Status: StatusRunning},
		},
		{
			name: "explicit failure with reason",
			body: `{"data":{"status":"Fail","reason":"content policy"}}`,
			want: Result{Status: StatusFailed, Detail: "content policy"},
		},
		{
			name: "explicit failure with message",
			body: `{"data":{"status":"failed","message":"quota exceeded"}}`,
			want: Result{Status: StatusFailed, Detail: "quota exceeded"},
		},
		{
			name: "failure without detail",
			body: `{"data":{"status":"error"}}`,
			want: Result{Status: StatusFailed, Detail: "generation failed"},
		},
		{
			name: "success without url is a failure",
			body: `{"data":{"status":"succeeded"}}`,
			want: Result{Status: StatusFailed, Detail: malformedDetail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeResult([]byte(tt.body))
			if got != tt.want {
				t.Errorf("normalizeResult = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeResult_URLProbePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "video_url wins over urls",
			body: `{"data":{"status":"succeeded","video_url":"https://a.mp4","urls":["https://b.mp4"]}}`,
			want: "https://a.mp4",
		},
		{
			name: "urls wins over nested data",
			body: `{"data":{"status":"succeeded","urls":["https://b.mp4"],"data":{"video_url":"https://c.mp4"}}}`,
			want: "https://b.mp4",
		},
		{
			name: "nested data video_url",
			body: `{"data":{"status":"succeeded","data":{"video_url":"https://c.mp4"}}}`,
			want: "https://c.mp4",
		},
		{
			name: "nested data urls list",
			body: `{"data":{"status":"succeeded","data":{"urls":["https://d.mp4"]}}}`,
			want: "https://d.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeResult([]byte(tt.body))
			if got.Status != StatusSucceeded {
				t.Fatalf("expected succeeded, got %v (%+v)", got.Status, got)
			}
			if got.VideoURL != tt.want {
				t.Errorf("VideoURL = %q, want %q", got.VideoURL, tt.want)
			}
		})
	}
}

func TestExtractTaskID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data envelope", `{"code":10000,"data":{"task_id":"task-1"}}`, "task-1"},
		{"flat", `{"task_id":"task-2"}`, "task-2"},
		{"nested wins", `{"task_id":"flat","data":{"task_id":"nested"}}`, "nested"},
		{"absent", `{"data":{}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTaskID([]byte(tt.body)); got != tt.want {
				t.Errorf("extractTaskID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorDetail(t *testing.T) {
	body := `{"ResponseMetadata":{"Error":{"Message":"InvalidAccessKey"}}}`
	if got := errorDetail([]byte(body)); got != "InvalidAccessKey" {
		t.Errorf("errorDetail = %q, want InvalidAccessKey", got)
	}

	raw := `upstream exploded`
	if got := errorDetail([]byte(raw)); got != raw {
		t.Errorf("errorDetail = %q, want raw body %q", got, raw)
	}
}
