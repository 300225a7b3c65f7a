package constants

import "time"

// Default pagination button custom IDs
const (
	// ButtonSkipLeft jumps to the first page
	ButtonSkipLeft = "pgb-skip-left"
	// ButtonLeft moves one page back
	ButtonLeft = "pgb-left"
	// ButtonStop ends the pagination session
	ButtonStop = "pgb-stop"
	// ButtonRight moves one page forward
	ButtonRight = "pgb-right"
	// ButtonSkipRight jumps to the last page
	ButtonSkipRight = "pgb-skip-right"
)

// Platform limits
const (
	// MaxCommandNameLength is the longest accepted command, group or option name
	MaxCommandNameLength = 32
	// MaxDescriptionLength is the longest accepted command or option description
	MaxDescriptionLength = 100
	// MaxChoices is the maximum number of choices a single option may carry
	MaxChoices = 25
	// MaxTopLevelCommands is the maximum number of top-level commands per scope
	MaxTopLevelCommands = 100
	// MaxOptions is the maximum number of options or subcommands under one node
	MaxOptions = 25
	// MaxMessageLength is the platform's message character limit
	MaxMessageLength = 2000
)

// Timeouts and rates
const (
	// DefaultInteractivityTimeout bounds how long a session waits for a terminal action
	DefaultInteractivityTimeout = 5 * time.Minute
	// DefaultRegistrationRate is the number of bulk overwrites allowed per second
	DefaultRegistrationRate = 2.0
	// DefaultRegistrationBurst is the burst size of the registration limiter
	DefaultRegistrationBurst = 1
	// DefaultRegistrationConcurrency bounds parallel scope registration
	DefaultRegistrationConcurrency = 4
	// DefaultCleanupTimeout bounds the cleanup step of a finished session
	DefaultCleanupTimeout = 10 * time.Second
	// AdminShutdownTimeout bounds graceful shutdown of the admin server
	AdminShutdownTimeout = 5 * time.Second
	// AdminReadHeaderTimeout bounds reading request headers on the admin server
	AdminReadHeaderTimeout = 5 * time.Second
)

// Session registry
const (
	// SessionShards is the number of lock stripes in the session registry
	SessionShards = 32
)

// Messages
const (
	// DefaultNotYourInteraction is sent to actors clicking someone else's session
	DefaultNotYourInteraction = "This interaction was not meant for you."
)

// Token masking
const (
	// MinTokenLengthForMasking is the minimum token length to apply masking
	MinTokenLengthForMasking = 10
	// TokenMaskPrefixLength is the length of prefix to show before masking
	TokenMaskPrefixLength = 7
	// TokenMaskSuffixLength is the length of suffix to show after masking
	TokenMaskSuffixLength = 4
)
