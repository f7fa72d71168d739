package challenge

import "strings"

// Normalize canonicalizes challenge names and their aliases.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	trimmed := strings.TrimPrefix(normalized, "challenge-")
	if trimmed == normalized {
		trimmed = strings.TrimPrefix(trimmed, "challenge")
	}
	trimmed = strings.Trim(trimmed, "-")
	if trimmed != "" && trimmed != normalized {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func canonicalName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "xtarget", "x", "xcoordinate", "ordinary":
		return "x-target", true
	case "xwindow", "xconstrained", "xcoordinatewindow", "partial", "constrained":
		return "x-window", true
	case "pointtarget", "point", "point2d":
		return "point-target", true
	default:
		return "", false
	}
}
