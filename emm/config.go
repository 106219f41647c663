package emm

import (
	"time"

	"github.com/omec-project/mme/context"
)

// TimerConfig mirrors the teacher's factory.TimerValue shape
// (Enable/ExpireTime/MaxRetryTimes) used for T3550/T3560/T3565, reused
// here for T3450/T3460/T3470.
type TimerConfig struct {
	Enable        bool
	ExpireTime    time.Duration
	MaxRetryTimes int32
}

// Config is the subset of factory.Configuration the Attach core reads.
type Config struct {
	EmergencyAttachEnable     bool
	UnauthenticatedImsiEnable bool

	// ForceIdentifyOnGuti resolves the open question left by the
	// original's `#warning "LG Temp. Force identification here"`: when
	// true, a GUTI resolved to an existing context is always followed
	// by an explicit identification request instead of trusting the
	// context's stored IMSI. Defaults to false.
	ForceIdentifyOnGuti bool

	Gummei context.Gummei

	T3450 TimerConfig
	T3460 TimerConfig
	T3470 TimerConfig
}
