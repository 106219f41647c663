/*
 * MME Configuration Factory
 */

package factory

import (
	"time"

	"github.com/omec-project/mme/context"
)

const MmeExpectedConfigVersion = "1.0.0"

type Config struct {
	Info          *Info          `yaml:"info"`
	Configuration *Configuration `yaml:"configuration"`
	Logger        *Logger        `yaml:"logger"`
}

// Logger mirrors the teacher's per-subsystem log-level YAML block. The
// teacher's own Logger struct comes from an import path that isn't in
// its go.mod require block, so this one is declared locally instead of
// pulled in from a dependency that can't be verified against the module
// it's supposedly part of.
type Logger struct {
	MME *LogSetting `yaml:"MME,omitempty"`
}

type LogSetting struct {
	DebugLevel   string `yaml:"debugLevel,omitempty"`
	ReportCaller bool   `yaml:"reportCaller,omitempty"`
}

type Info struct {
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Configuration is the YAML-mapped settings the Attach core reads at
// startup and on config-file change (spec.md 6).
type Configuration struct {
	MmeName string `yaml:"mmeName,omitempty"`

	EmergencyAttach     FeatureFlag `yaml:"emergencyAttach"`
	UnauthenticatedImsi FeatureFlag `yaml:"unauthenticatedImsi"`

	// ForceIdentifyOnGuti resolves the reimplementation's open question
	// about the original's "LG Temp. Force identification here"
	// short-circuit (spec.md 9); defaults false.
	ForceIdentifyOnGuti bool `yaml:"forceIdentifyOnGuti,omitempty"`

	Gummei GummeiConfig `yaml:"gummei"`

	T3450 TimerValue `yaml:"t3450"`
	T3460 TimerValue `yaml:"t3460"`
	T3470 TimerValue `yaml:"t3470"`

	// PlmnMncLength backs find_mnc_length (spec.md 6): the original's
	// compiled-in PLMN table has no portable equivalent, so this is a
	// configured 6-digit-MCC+MNC-prefix -> MNC-length table instead.
	PlmnMncLength map[string]int `yaml:"plmnMncLength,omitempty"`
}

// FeatureFlag mirrors the teacher's NetworkFeatureSupport5GS pattern:
// a struct rather than a bare bool so the YAML section can grow
// sibling fields later without a breaking shape change.
type FeatureFlag struct {
	Enable bool `yaml:"enable"`
}

type GummeiConfig struct {
	MCC        string `yaml:"mcc"`
	MNC        string `yaml:"mnc"`
	MmeGroupId uint16 `yaml:"mmeGroupId"`
	MmeCode    uint8  `yaml:"mmeCode"`
}

func (g GummeiConfig) ToGummei() context.Gummei {
	return context.Gummei{MCC: g.MCC, MNC: g.MNC, MMEGroupID: g.MmeGroupId, MMECode: g.MmeCode}
}

type TimerValue struct {
	Enable        bool          `yaml:"enable"`
	ExpireTime    time.Duration `yaml:"expireTime"`
	MaxRetryTimes int32         `yaml:"maxRetryTimes,omitempty"`
}

func (c *Config) GetVersion() string {
	if c.Info != nil && c.Info.Version != "" {
		return c.Info.Version
	}
	return ""
}
