// Package config loads the μ-kernel's environment knobs (§6). Config loading
// itself is an out-of-scope collaborator concern (§1 Non-goals: "CLI
// front-ends, config loaders" are external) — this package only shapes the
// environment into a validated struct; it never reaches into a remote config
// service or file format.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BrownoutMode is the admission controller's degraded-operation mode (§4.7).
type BrownoutMode uint8

const (
	// Normal admits to R1/W1/C1 per the standard decision rule.
	Normal BrownoutMode = iota
	// R1Only rejects W1/C1, forcing every delta through the hot path or a refusal.
	R1Only
	// W1Degraded disables C1; work that would have been cold is parked warm.
	W1Degraded
	// C1Paused disables only C1.
	C1Paused
)

// String renders the mode using the exact spelling the CHATMAN/BROWNOUT_MODE
// environment variable accepts.
func (m BrownoutMode) String() string {
	switch m {
	case Normal:
		return "Normal"
	case R1Only:
		return "R1Only"
	case W1Degraded:
		return "W1Degraded"
	case C1Paused:
		return "C1Paused"
	default:
		return "Normal"
	}
}

func parseBrownoutMode(s string) (BrownoutMode, error) {
	switch strings.TrimSpace(s) {
	case "", "Normal":
		return Normal, nil
	case "R1Only":
		return R1Only, nil
	case "W1Degraded":
		return W1Degraded, nil
	case "C1Paused":
		return C1Paused, nil
	default:
		return Normal, fmt.Errorf("config: BROWNOUT_MODE %q is not one of Normal|R1Only|W1Degraded|C1Paused", s)
	}
}

// Config is the full set of environment knobs named in spec §6.
type Config struct {
	// ChatmanLimit is the hard per-operation tick limit. Default 8; FromEnv
	// rejects any value above 8 with an error (the Chatman Constant is not
	// operator-tunable beyond the catalogue's own bound).
	ChatmanLimit uint8
	// GuardPoolSize is the number of pre-allocated guard batches. Default 16.
	GuardPoolSize int
	// RingSize is the Δ/Α ring capacity, must be a power of two. Default 1024.
	RingSize int
	// BrownoutMode is the admission controller's operating mode.
	BrownoutMode BrownoutMode
	// SLOWindowSec is the rolling window, in seconds, used to compute SLO headroom.
	SLOWindowSec int
}

// Default returns the documented defaults for every knob.
func Default() Config {
	return Config{
		ChatmanLimit:  8,
		GuardPoolSize: 16,
		RingSize:      1024,
		BrownoutMode:  Normal,
		SLOWindowSec:  60,
	}
}

// FromEnv reads CHATMAN_LIMIT, GUARD_POOL_SIZE, RING_SIZE, BROWNOUT_MODE, and
// SLO_WINDOW_SEC from the process environment, falling back to Default for
// anything unset. It returns an error for malformed values rather than
// silently substituting a default, since a typo'd env var silently ignored is
// worse than a refusal to start.
func FromEnv() (Config, error) {
	c := Default()

	if v := os.Getenv("CHATMAN_LIMIT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return Config{}, fmt.Errorf("config: CHATMAN_LIMIT: %w", err)
		}
		if n > 8 {
			return Config{}, fmt.Errorf("config: CHATMAN_LIMIT %d exceeds the Chatman Constant of 8", n)
		}
		c.ChatmanLimit = uint8(n)
	}

	if v := os.Getenv("GUARD_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: GUARD_POOL_SIZE must be a positive integer, got %q", v)
		}
		c.GuardPoolSize = n
	}

	if v := os.Getenv("RING_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n&(n-1) != 0 {
			return Config{}, fmt.Errorf("config: RING_SIZE must be a positive power of two, got %q", v)
		}
		c.RingSize = n
	}

	if v := os.Getenv("BROWNOUT_MODE"); v != "" {
		mode, err := parseBrownoutMode(v)
		if err != nil {
			return Config{}, err
		}
		c.BrownoutMode = mode
	}

	if v := os.Getenv("SLO_WINDOW_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: SLO_WINDOW_SEC must be a positive integer, got %q", v)
		}
		c.SLOWindowSec = n
	}

	return c, nil
}
