package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid model size
	Error string `json:"error" example:"invalid model size"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
}

// UploadResponse is returned by POST /api/upload-audio.
type UploadResponse struct {
	// example: Audio file uploaded successfully
	Message string `json:"message" example:"Audio file uploaded successfully"`
	// Day folder of the session (YYYY-MM-DD).
	// example: 2024-05-01
	DateFolder string `json:"date_folder" example:"2024-05-01"`
	// Time folder of the session (HHMMSS).
	// example: 142233
	SessionFolder string `json:"session_folder" example:"142233"`
	// example: /var/lib/sttd/storage/2024-05-01/142233/audio.webm
	FilePath string `json:"file_path" example:"/var/lib/sttd/storage/2024-05-01/142233/audio.webm"`
	// Language label as submitted.
	// example: tiếng việt
	Language string `json:"language" example:"tiếng việt"`
}

// TranscribeRequest is the body of POST /api/transcribe.
type TranscribeRequest struct {
	// example: 2024-05-01
	DateFolder string `json:"date_folder" example:"2024-05-01"`
	// example: 142233
	SessionFolder string `json:"session_folder" example:"142233"`
	// Language label: "english" or "tiếng việt".
	// example: english
	Language string `json:"language" example:"english"`
	// One of tiny, base, small, medium, large-v3.
	// example: base
	ModelSize string `json:"model_size" example:"base"`
}

// TranscribeResponse is returned by POST /api/transcribe.
type TranscribeResponse struct {
	// example: Transcription completed successfully
	Message string `json:"message" example:"Transcription completed successfully"`
	// example: hello world
	Transcription     string `json:"transcription" example:"hello world"`
	AudioPath         string `json:"audio_path"`
	TranscriptionPath string `json:"transcription_path"`
}

// ModelsResponse wraps the list returned by GET /api/models.
type ModelsResponse struct {
	Models []Model `json:"models"`
	// Model preloaded at startup.
	// example: large-v3
	Default string `json:"default,omitempty" example:"large-v3"`
}

// EntryStatus summarizes one loaded pool entry for /api/status.
type EntryStatus struct {
	// example: base
	Model string `json:"model" example:"base"`
	// Device the model is loaded on.
	// example: cuda
	Device string `json:"device" example:"cuda"`
	// example: 1700000000
	LastUsedUnix int64 `json:"last_used_unix" example:"1700000000"`
	// example: 1699990000
	LoadedAtUnix int64 `json:"loaded_at_unix" example:"1699990000"`
	// Cache hits since load.
	// example: 3
	Hits uint64 `json:"hits" example:"3"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Entries []EntryStatus `json:"entries"`
	// Maximum number of loaded models.
	// example: 1
	Capacity int `json:"capacity" example:"1"`
	// Device policy from configuration (auto, cpu, cuda).
	// example: auto
	DevicePolicy string `json:"device_policy" example:"auto"`
	// Device a new load would use right now.
	// example: cuda
	SelectedDevice string `json:"selected_device" example:"cuda"`
	// Transcriptions currently running.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Transcriptions recorded in the history database.
	// example: 42
	TranscriptionsTotal int `json:"transcriptions_total" example:"42"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// TranscriptionsResponse is returned by GET /api/transcriptions.
type TranscriptionsResponse struct {
	Transcriptions []TranscriptionRecord `json:"transcriptions"`
}
