package types

// Model is a transcription model size and the weights file that backs it.
type Model struct {
	// Model size identifier.
	// example: base
	ID string `json:"id" example:"base"`
	// Absolute path to the weights file, empty when not found on disk.
	// example: /var/lib/sttd/models/ggml-base.bin
	Path string `json:"path,omitempty" example:"/var/lib/sttd/models/ggml-base.bin"`
	// Whether the weights file is present.
	// example: true
	Available bool `json:"available" example:"true"`
}

// TranscriptionRecord is one completed transcription as kept in history.
type TranscriptionRecord struct {
	// example: 42
	ID int64 `json:"id" example:"42"`
	// example: 2024-05-01
	DateFolder string `json:"date_folder" example:"2024-05-01"`
	// example: 142233
	SessionFolder string `json:"session_folder" example:"142233"`
	// Language code passed to the model.
	// example: en
	Language string `json:"language" example:"en"`
	// example: base
	ModelSize string `json:"model_size" example:"base"`
	// Device the model was loaded on.
	// example: cpu
	Device string `json:"device" example:"cpu"`
	AudioPath         string `json:"audio_path"`
	TranscriptionPath string `json:"transcription_path"`
	// Length of the transcription in characters.
	// example: 128
	Chars int `json:"chars" example:"128"`
	// example: 5300
	DurationMS int64 `json:"duration_ms" example:"5300"`
	// example: 1700000000
	CreatedAtUnix int64 `json:"created_at_unix" example:"1700000000"`
}
