// Package rules implements the phonological correction layer of the
// pipeline: the per-request rule configuration schema and the token-aware
// engine that rewrites a phoneme sequence according to the enabled rules.
//
// Each rule models a known child articulation error pattern:
//
//   - Gliding: a liquid/rhotic is produced as a glide (e.g. "wabbit" for
//     "rabbit", "wook" for "look").
//   - Stopping: a fricative is produced as a stop (e.g. "tun" for "sun",
//     "doo" for "zoo").
//   - Cluster reduction: an /s/+stop onset cluster is simplified to the bare
//     stop (e.g. "poon" for "spoon").
//
// The configuration is supplied per request, validated eagerly, and echoed
// back verbatim in the pipeline result so the caller can audit exactly what
// was applied.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Schema drift note: earlier revisions of the upstream pipeline accepted a
// flat boolean map. The nested gliding/stopping grouping below is the one
// canonical schema; flat configurations are rejected, not coerced.

// Gliding holds the individually toggleable gliding correction switches.
type Gliding struct {
	// WToR rewrites a pre-vocalic "w" back to "ɹ" (child says "wabbit" for
	// "rabbit").
	WToR bool `json:"w_to_r"`

	// LToW rewrites a pre-vocalic "w" back to "l" (child says "wook" for
	// "look"). Takes priority over WToR/RToW when both could fire.
	LToW bool `json:"l_to_w"`

	// RToW rewrites a pre-vocalic "w" back to "ɹ" (child says "wed" for
	// "red").
	RToW bool `json:"r_to_w"`
}

// Stopping holds the individually toggleable stopping correction switches.
type Stopping struct {
	// SToT rewrites "t" back to "s" (child says "tun" for "sun").
	SToT bool `json:"s_to_t"`

	// ZToD rewrites "d" back to "z" (child says "doo" for "zoo").
	ZToD bool `json:"z_to_d"`
}

// Set is the complete rule configuration for one pipeline invocation.
// Immutable once parsed. The zero value with both groups non-nil and all
// switches false is a valid no-op configuration.
type Set struct {
	Gliding  *Gliding  `json:"gliding"`
	Stopping *Stopping `json:"stopping"`

	// ClusterReduction enables re-insertion of a reduced /s/+stop cluster.
	ClusterReduction bool `json:"cluster_reduction"`
}

// ErrInvalid is the error kind wrapped by every configuration parse or
// validation failure. Callers should treat it as a request error, not a
// server fault.
var ErrInvalid = errors.New("invalid rule configuration")

// Parse decodes and validates a JSON rule configuration. Unknown keys and
// missing rule-family groups are rejected rather than silently defaulted;
// missing switches inside a present group default to false.
func Parse(data []byte) (Set, error) {
	var s Set
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

// Validate checks that both rule-family groups are present.
func (s Set) Validate() error {
	var errs []error
	if s.Gliding == nil {
		errs = append(errs, fmt.Errorf("%w: missing required group %q", ErrInvalid, "gliding"))
	}
	if s.Stopping == nil {
		errs = append(errs, fmt.Errorf("%w: missing required group %q", ErrInvalid, "stopping"))
	}
	return errors.Join(errs...)
}

// None returns a valid configuration with every switch disabled.
func None() Set {
	return Set{Gliding: &Gliding{}, Stopping: &Stopping{}}
}

// Enabled returns the names of all enabled switches, for logging and metric
// attributes. The result is empty for a no-op configuration.
func (s Set) Enabled() []string {
	var names []string
	if s.Gliding != nil {
		if s.Gliding.WToR {
			names = append(names, "gliding.w_to_r")
		}
		if s.Gliding.LToW {
			names = append(names, "gliding.l_to_w")
		}
		if s.Gliding.RToW {
			names = append(names, "gliding.r_to_w")
		}
	}
	if s.Stopping != nil {
		if s.Stopping.SToT {
			names = append(names, "stopping.s_to_t")
		}
		if s.Stopping.ZToD {
			names = append(names, "stopping.z_to_d")
		}
	}
	if s.ClusterReduction {
		names = append(names, "cluster_reduction")
	}
	return names
}
