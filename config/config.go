// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// STT backend selectors.
const (
	STTRealtime = "realtime"
	STTWhisper  = "whisper"
)

// Voice input modes for the interactive shell.
const (
	VoiceModeVoice  = "voice"
	VoiceModeText   = "text"
	VoiceModeHybrid = "hybrid"
)

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type VoiceConfig struct {
	Mode            string
	AutoTTS         bool
	RecordSeconds   int
	STTBackend      string
	STTModel        string
	WhisperModel    string
	TTSModel        string
	TTSVoice        string
	RealtimeURL     string
	DashScopeAPIKey string
}

type Config struct {
	PostgresDSN    string
	CollectionName string
	DocsDir        string
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	// MaxDistance, when positive, discards retrieval hits farther than this
	// L2 distance. Zero disables the ceiling.
	MaxDistance float64
	Port        int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Embeddings EmbeddingConfig
	LLM        LLMConfig
	Voice      VoiceConfig
}

func Load() Config {
	return Config{
		PostgresDSN:    getEnv("POSTGRES_DSN", "postgres://localhost:5432/museum-rag?sslmode=disable"),
		CollectionName: getEnv("COLLECTION_NAME", "local_knowledge"),
		DocsDir:        getEnv("DOCS_DIR", "./docs"),
		ChunkSize:      envInt("CHUNK_SIZE", 800),
		ChunkOverlap:   envInt("CHUNK_OVERLAP", 120),
		TopK:           envInt("TOP_K", 4),
		MaxDistance:    envFloat("MAX_DISTANCE", 0),
		Port:           envInt("PORT", 8080),

		OllamaHost:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_BACKEND", ProviderOllama),
			Model:     getEnv("EMBEDDING_MODEL", "qwen3-embedding:0.6b"),
			Dimension: envInt("EMBEDDING_DIMENSION", 1024),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_BACKEND", ProviderOllama),
			Model:    getEnv("LLM_MODEL", "qwen2.5:3b"),
		},
		Voice: VoiceConfig{
			Mode:            getEnv("VOICE_MODE", VoiceModeHybrid),
			AutoTTS:         envBool("AUTO_TTS", true),
			RecordSeconds:   envInt("RECORD_DURATION", 5),
			STTBackend:      getEnv("STT_BACKEND", STTRealtime),
			STTModel:        getEnv("STT_MODEL", "gummy-chat-v1"),
			WhisperModel:    getEnv("WHISPER_MODEL", ""),
			TTSModel:        getEnv("TTS_MODEL", "qwen3-tts-flash-realtime"),
			TTSVoice:        getEnv("TTS_VOICE", "Cherry"),
			RealtimeURL:     getEnv("DASHSCOPE_WS_URL", "wss://dashscope.aliyuncs.com/api-ws/v1/realtime"),
			DashScopeAPIKey: getEnv("DASHSCOPE_API_KEY", ""),
		},
	}
}

// Validate reports configuration problems that are fatal at startup.
// requireVoice controls whether the speech credentials must be present.
func (c Config) Validate(requireVoice bool) error {
	if strings.TrimSpace(c.CollectionName) == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size)")
	}
	if c.Embeddings.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai embedding backend selected but OPENAI_API_KEY not set")
	}
	if c.LLM.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai llm backend selected but OPENAI_API_KEY not set")
	}
	if requireVoice {
		switch c.Voice.STTBackend {
		case STTRealtime:
			if c.Voice.DashScopeAPIKey == "" {
				return fmt.Errorf("realtime stt backend selected but DASHSCOPE_API_KEY not set")
			}
		case STTWhisper:
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("whisper stt backend selected but OPENAI_API_KEY not set")
			}
		default:
			return fmt.Errorf("unknown stt backend: %s", c.Voice.STTBackend)
		}
		if c.Voice.DashScopeAPIKey == "" {
			return fmt.Errorf("realtime tts backend requires DASHSCOPE_API_KEY")
		}
		if c.Voice.RecordSeconds <= 0 {
			return fmt.Errorf("record duration must be positive")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
