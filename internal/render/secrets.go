/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/caltechads/deployfish/internal/model"
)

// SecretState classifies one config secret against Parameter Store.
type SecretState int

const (
	// SecretInSync means the live value matches the config value.
	SecretInSync SecretState = iota
	// SecretMissing means the parameter does not exist yet.
	SecretMissing
	// SecretChanged means the parameter exists with a different value.
	SecretChanged
	// SecretExternal means the parameter is owned elsewhere and only read.
	SecretExternal
)

// SecretComparison is the per-parameter result of comparing config
// against live state.
type SecretComparison struct {
	Name  string
	State SecretState
}

// CompareSecrets classifies every desired secret against the live set,
// sorted by parameter name.  Live-only parameters are ignored: deployfish
// never deletes parameters it did not just write.
func CompareSecrets(desired, live []*model.Secret) []SecretComparison {
	liveByName := make(map[string]*model.Secret, len(live))
	for _, secret := range live {
		liveByName[secret.Name] = secret
	}

	out := make([]SecretComparison, 0, len(desired))
	for _, secret := range desired {
		comparison := SecretComparison{Name: secret.Name}
		switch {
		case secret.External:
			comparison.State = SecretExternal
		case liveByName[secret.Name] == nil:
			comparison.State = SecretMissing
		case liveByName[secret.Name].Value != secret.Value:
			comparison.State = SecretChanged
		default:
			comparison.State = SecretInSync
		}
		out = append(out, comparison)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FormatSecretComparisons renders a comparison in unified-diff style:
// '+' for parameters to be created, '~' for parameters whose value will
// change, ' ' for everything already in sync.
func FormatSecretComparisons(comparisons []SecretComparison, styles *Styles) string {
	var output strings.Builder
	for _, comparison := range comparisons {
		switch comparison.State {
		case SecretMissing:
			output.WriteString(styles.Added.Render(fmt.Sprintf("+ %s (missing)", comparison.Name)))
		case SecretChanged:
			output.WriteString(styles.Modified.Render(fmt.Sprintf("~ %s (changed)", comparison.Name)))
		case SecretExternal:
			output.WriteString(styles.Subtle.Render(fmt.Sprintf("  %s (external)", comparison.Name)))
		default:
			output.WriteString(fmt.Sprintf("  %s", comparison.Name))
		}
		output.WriteString("\n")
	}
	return output.String()
}
