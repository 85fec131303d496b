package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds the threshold and keyword values the pipeline's pure functions
// take as explicit inputs. Read-only once loaded.
type Policy struct {
	ConfidenceThreshold float64  `yaml:"ConfidenceThreshold"`
	SensitiveKeywords   []string `yaml:"SensitiveKeywords"`
	TrustedSenders      []string `yaml:"TrustedSenders"`
	WorkingHourStart    int      `yaml:"WorkingHourStart"`
	WorkingHourEnd      int      `yaml:"WorkingHourEnd"`
	SearchWindowDays    int      `yaml:"SearchWindowDays"`
	MaxSlots            int      `yaml:"MaxSlots"`
	DefaultDurationMin  int      `yaml:"DefaultDurationMinutes"`
}

// DefaultPolicy mirrors the shipped defaults: review anything under 0.7
// confidence and anything touching money, legal, or urgency language.
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold: 0.7,
		SensitiveKeywords: []string{
			"urgent", "deadline", "contract", "payment", "$",
			"invoice", "legal", "confidential", "asap", "immediately",
		},
		WorkingHourStart:   9,
		WorkingHourEnd:     17,
		SearchWindowDays:   14,
		MaxSlots:           10,
		DefaultDurationMin: 60,
	}
}

type Config struct {
	Port                 string
	Timezone             string
	ModelID              string
	HuggingFaceAPIKey    string
	InferenceTimeout     time.Duration
	GmailCredentialsPath string
	GmailTokenPath       string
	LineChannelToken     string
	LineUserID           string
	DBHost               string
	DBPort               string
	DBUser               string
	DBPassword           string
	DBName               string
	Policy               Policy
}

// Load reads configuration from the environment, then overlays the optional
// YAML policy file named by POLICY_PATH.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Timezone:             getEnv("TIMEZONE", "UTC"),
		ModelID:              getEnv("LLM_MODEL_ID", "meta-llama/Llama-3.1-8B-Instruct"),
		HuggingFaceAPIKey:    os.Getenv("HUGGINGFACE_API_KEY"),
		InferenceTimeout:     30 * time.Second,
		GmailCredentialsPath: getEnv("GMAIL_CREDENTIALS_PATH", "credentials.json"),
		GmailTokenPath:       getEnv("GMAIL_TOKEN_PATH", "token.json"),
		LineChannelToken:     os.Getenv("LINE_CHANNEL_TOKEN"),
		LineUserID:           os.Getenv("LINE_USER_ID"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBUser:               getEnv("DB_USER", "root"),
		DBPassword:           os.Getenv("DB_PASSWORD"),
		DBName:               getEnv("DB_NAME", "gmail_agent"),
		Policy:               DefaultPolicy(),
	}

	if v := os.Getenv("INFERENCE_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid INFERENCE_TIMEOUT_SECONDS %q: %w", v, err)
		}
		cfg.InferenceTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CONFIDENCE_THRESHOLD %q: %w", v, err)
		}
		cfg.Policy.ConfidenceThreshold = threshold
	}

	if path := os.Getenv("POLICY_PATH"); path != "" {
		if err := cfg.loadPolicyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadPolicyFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	policy := c.Policy
	if err := yaml.Unmarshal(buf, &policy); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}
	c.Policy = policy

	return nil
}

func (p Policy) Validate() error {
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v out of range [0,1]", p.ConfidenceThreshold)
	}
	if p.WorkingHourStart < 0 || p.WorkingHourEnd > 24 || p.WorkingHourStart >= p.WorkingHourEnd {
		return fmt.Errorf("invalid working hours %d-%d", p.WorkingHourStart, p.WorkingHourEnd)
	}
	if p.SearchWindowDays <= 0 {
		return fmt.Errorf("search window must be positive, got %d days", p.SearchWindowDays)
	}
	if p.DefaultDurationMin <= 0 {
		return fmt.Errorf("default duration must be positive, got %d minutes", p.DefaultDurationMin)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
