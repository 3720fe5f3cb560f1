package config

import (
	"fmt"
	"strings"

	"modernc.org/libqbe"
)

type Feature int

const (
	FeatReturn Feature = iota
	FeatCount
)

type Warning int

const (
	WarnUnreachableCode Warning = iota
	WarnUnusedValue
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	BackendX86 = "x86"
	BackendQBE = "qbe"
)

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	Backend        string
	QbeTarget      string
	WordSize       int
	StackAlignment int
	FrameSlots     int // one slot per lowercase identifier
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap:     make(map[string]Feature),
		WarningMap:     make(map[string]Warning),
		Backend:        BackendX86,
		WordSize:       8,
		StackAlignment: 16,
		FrameSlots:     26,
	}

	features := map[Feature]Info{
		FeatReturn: {"return", true, "Recognize the 'return' keyword."},
	}

	warnings := map[Warning]Info{
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements after 'return'."},
		WarnUnusedValue:     {"unused-value", false, "Warn when a statement computes a value that is thrown away."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// FrameSize is the number of bytes the prologue reserves for locals, rounded
// up to the stack alignment.
func (c *Config) FrameSize() int {
	size := c.FrameSlots * c.WordSize
	if a := c.StackAlignment; a > 0 {
		size = (size + a - 1) / a * a
	}
	return size
}

// SetBackend selects the code generator and, for qbe, the QBE target.
func (c *Config) SetBackend(backend, goos, goarch, qbeTarget string) error {
	switch backend {
	case BackendX86, "":
		c.Backend = BackendX86
		c.WordSize, c.StackAlignment = 8, 16
		return nil
	case BackendQBE:
		c.Backend = BackendQBE
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: '%s', '%s'", backend, BackendX86, BackendQBE)
	}

	if qbeTarget == "" {
		qbeTarget = libqbe.DefaultTarget(goos, goarch)
	}
	c.QbeTarget = qbeTarget

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize, c.StackAlignment = 8, 16
	default:
		return fmt.Errorf("unsupported QBE target '%s'", c.QbeTarget)
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag applies a single -W/-F style flag, e.g. "-Wno-extra" or "-Freturn".
// Unknown names are reported as an error.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessFlags applies -Wall/-Wno-all first so that individual flags override them.
func (c *Config) ProcessFlags(flags []string) error {
	isAll := func(f string) bool { return f == "-Wall" || f == "-Wno-all" }
	for _, f := range flags {
		if isAll(f) {
			if err := c.ApplyFlag(f); err != nil {
				return err
			}
		}
	}
	for _, f := range flags {
		if !isAll(f) {
			if err := c.ApplyFlag(f); err != nil {
				return err
			}
		}
	}
	return nil
}
