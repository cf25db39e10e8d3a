package agent

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	defaultMaxAudioSizeMB    = 25
	defaultAllowedAudioTypes = "audio/wav,audio/mp3,audio/mpeg,audio/webm,audio/ogg"
)

// AudioPolicy bounds the uploaded clip before it enters the pipeline.
type AudioPolicy struct {
	MaxSizeBytes int64
	AllowedTypes []string
}

// AudioPolicyFromEnv builds the policy from MAX_AUDIO_SIZE_MB and
// ALLOWED_AUDIO_TYPES (comma-separated MIME types), falling back to 25 MB
// and the common audio types when unset.
func AudioPolicyFromEnv() AudioPolicy {
	maxSizeMB := defaultMaxAudioSizeMB
	if raw := os.Getenv("MAX_AUDIO_SIZE_MB"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxSizeMB = parsed
		}
	}

	allowed := defaultAllowedAudioTypes
	if raw := os.Getenv("ALLOWED_AUDIO_TYPES"); raw != "" {
		allowed = raw
	}

	types := strings.Split(allowed, ",")
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}

	return AudioPolicy{
		MaxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
		AllowedTypes: types,
	}
}

// Validate checks the clip against the policy and returns a human-readable
// reason when it is rejected.
func (p AudioPolicy) Validate(input *AudioInput) error {
	if p.MaxSizeBytes > 0 && int64(len(input.Data)) > p.MaxSizeBytes {
		return fmt.Errorf("file size exceeds %dMB limit", p.MaxSizeBytes/1024/1024)
	}
	if input.MIMEType != "" && len(p.AllowedTypes) > 0 && !slices.Contains(p.AllowedTypes, input.MIMEType) {
		return fmt.Errorf("file type %s not allowed. Allowed types: %s", input.MIMEType, strings.Join(p.AllowedTypes, ", "))
	}
	return nil
}
