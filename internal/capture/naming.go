package capture

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout names captures with one-second resolution, e.g. 2024-05-01_13h07min42sec.
const TimestampLayout = "2006-01-02_15h04min05sec"

const (
	labeledSuffix = "_labeled"
	metadataExt   = ".json"
)

// Policy decides what happens when a capture's names are already taken.
type Policy string

const (
	// PolicySuffix appends _2, _3, ... to the base name until all three files are free.
	PolicySuffix Policy = "suffix"
	// PolicyFail refuses the capture before anything is written.
	PolicyFail Policy = "fail"
	// PolicyLegacy overwrites both images and fails on the metadata file.
	PolicyLegacy Policy = "legacy"
)

// ParsePolicy validates a policy name. The empty string selects PolicySuffix.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicySuffix, nil
	case PolicySuffix, PolicyFail, PolicyLegacy:
		return p, nil
	}
	return "", fmt.Errorf("unknown collision policy %q (valid: %s, %s, %s)", name, PolicySuffix, PolicyFail, PolicyLegacy)
}

// Timestamp formats t as a capture base name.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// artifactNames are the three file names of one capture.
type artifactNames struct {
	base     string
	raw      string
	labeled  string
	metadata string
}

func namesFor(dir, base, imageExt string) artifactNames {
	return artifactNames{
		base:     base,
		raw:      dir + base + imageExt,
		labeled:  dir + base + labeledSuffix + imageExt,
		metadata: dir + base + metadataExt,
	}
}

func (n artifactNames) all() []string {
	return []string{n.raw, n.labeled, n.metadata}
}

func suffixed(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}
