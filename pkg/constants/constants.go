package constants

import "time"

// Message length limits
const (
	// MaxDiscordMessageLength is Discord's message character limit
	MaxDiscordMessageLength = 2000
	// MaxDiscordEmbedDescriptionLength is Discord's embed description character limit
	MaxDiscordEmbedDescriptionLength = 4096
)

// Interactive message lifecycle
const (
	// DefaultInteractiveTTL is how long reactions on an interactive message keep working
	DefaultInteractiveTTL = time.Hour
	// ReactionQueueBufferSize is the buffer size for the outbound reaction queue
	ReactionQueueBufferSize = 100
)

// Admission control defaults
const (
	// DefaultUserCommandLimit is the number of commands a user may run per window
	DefaultUserCommandLimit = 10
	// DefaultGuildCommandLimit is the number of commands a guild may run per window
	DefaultGuildCommandLimit = 50
	// DefaultRateLimitWindow is the sliding window length for command limits
	DefaultRateLimitWindow = 60 * time.Second
	// DefaultRateLimitSweepInterval is how often idle buckets are swept
	DefaultRateLimitSweepInterval = 5 * time.Minute
)

// Timeouts and delays
const (
	// DefaultReadyTimeout bounds how long startup waits for the gateway ready event
	DefaultReadyTimeout = 30 * time.Second
	// DefaultStatusUpdateInterval is the presence rotation interval
	DefaultStatusUpdateInterval = 60 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown of the health server
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultStoreTimeout bounds a single guild settings lookup
	DefaultStoreTimeout = 5 * time.Second
)

// Token masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply partial masking
	MinSecretLengthForMasking = 10
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)
