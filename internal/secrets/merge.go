package secrets

import "sort"

// Mode selects how Merge treats the intended change set.
type Mode string

const (
	// ModeUpsert applies intended values on top of the existing set.
	ModeUpsert Mode = "UPSERT"

	// ModeDelete moves excluded keys into the deletion batch.
	ModeDelete Mode = "DELETE"
)

// MergeResult is the reconciled secret set for one environment.
type MergeResult struct {
	// Secrets holds at most one entry per normalized key.
	Secrets []Secret

	// Deletions holds existing secrets removed in ModeDelete, so the backend
	// can process removals explicitly.
	Deletions []Secret

	// Missing lists keys requested for deletion that did not exist.
	Missing []string
}

// Merge reconciles the intended change set against the existing secrets.
//
// Existing secrets keep their order. Duplicates collapse to one entry, later
// entries winning. Secrets whose key is in excludeKeys are dropped, or in
// ModeDelete recorded in Deletions. In ModeUpsert every intended pair
// overwrites the existing value in place and new keys are appended in sorted
// order. ModeDelete ignores intended; only excludeKeys take effect. Merging
// the result again with the same input returns the same set.
func Merge(existing []Secret, intended map[string]string, excludeKeys []string, mode Mode) MergeResult {
	excluded := make(map[string]bool, len(excludeKeys))
	for _, key := range excludeKeys {
		excluded[NormalizeKey(key)] = true
	}

	var order []string
	byKey := make(map[string]Secret, len(existing))

	var deletionOrder []string
	deletions := make(map[string]Secret)

	for _, s := range existing {
		s = s.Normalized()
		if s.Key == "" {
			continue
		}

		if excluded[s.Key] {
			if mode == ModeDelete {
				if _, seen := deletions[s.Key]; !seen {
					deletionOrder = append(deletionOrder, s.Key)
				}
				deletions[s.Key] = s
			}
			continue
		}

		if _, seen := byKey[s.Key]; !seen {
			order = append(order, s.Key)
		}
		byKey[s.Key] = s
	}

	if mode == ModeUpsert {
		rawKeys := make([]string, 0, len(intended))
		for key := range intended {
			rawKeys = append(rawKeys, key)
		}
		sort.Strings(rawKeys)

		for _, raw := range rawKeys {
			key := NormalizeKey(raw)
			current, seen := byKey[key]
			if !seen {
				order = append(order, key)
				current = Secret{Key: key}
			}
			current.Value = intended[raw]
			byKey[key] = current
		}
	}

	result := MergeResult{Secrets: make([]Secret, 0, len(order))}
	for _, key := range order {
		result.Secrets = append(result.Secrets, byKey[key])
	}
	for _, key := range deletionOrder {
		result.Deletions = append(result.Deletions, deletions[key])
	}

	if mode == ModeDelete {
		reported := make(map[string]bool)
		for _, raw := range excludeKeys {
			key := NormalizeKey(raw)
			if _, found := deletions[key]; !found && !reported[key] {
				result.Missing = append(result.Missing, key)
				reported[key] = true
			}
		}
	}

	return result
}
