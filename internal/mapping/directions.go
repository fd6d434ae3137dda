package mapping

import "strings"

// Canonical direction names as stored in map transitions.
var Directions = []string{
	"NORTHEAST", "NORTHWEST", "SOUTHEAST", "SOUTHWEST",
	"NORTH", "SOUTH", "EAST", "WEST", "UP", "DOWN",
}

// abbreviations maps short tokens to canonical names. Compound
// abbreviations are matched before simple ones by token length.
var abbreviations = map[string]string{
	"NE": "NORTHEAST", "NW": "NORTHWEST", "SE": "SOUTHEAST", "SW": "SOUTHWEST",
	"N": "NORTH", "S": "SOUTH", "E": "EAST", "W": "WEST",
	"U": "UP", "D": "DOWN",
}

var shortForms = map[string]string{
	"NORTHEAST": "NE", "NORTHWEST": "NW", "SOUTHEAST": "SE", "SOUTHWEST": "SW",
	"NORTH": "N", "SOUTH": "S", "EAST": "E", "WEST": "W", "UP": "U", "DOWN": "D",
}

var movementPrefixes = []string{"GO ", "MOVE ", "WALK "}

// ExtractDirection returns the canonical direction a command moves in,
// or "" when the command is not directional. Compound directions are
// checked before simple ones so "NORTHEAST" never parses as "NORTH".
func ExtractDirection(command string) string {
	cmd := strings.ToUpper(strings.TrimSpace(command))
	for _, prefix := range movementPrefixes {
		if strings.HasPrefix(cmd, prefix) {
			cmd = strings.TrimSpace(strings.TrimPrefix(cmd, prefix))
			break
		}
	}
	for _, dir := range Directions {
		if cmd == dir {
			return dir
		}
	}
	if full, ok := abbreviations[cmd]; ok {
		return full
	}
	return ""
}

// CanonicalDirection normalizes any direction spelling to its full
// uppercase form, or "" for non-directions.
func CanonicalDirection(token string) string {
	t := strings.ToUpper(strings.TrimSpace(token))
	for _, dir := range Directions {
		if t == dir {
			return dir
		}
	}
	if full, ok := abbreviations[t]; ok {
		return full
	}
	return ""
}

// Abbreviate returns the short form of a canonical direction, falling
// back to the input for unknown values.
func Abbreviate(dir string) string {
	if short, ok := shortForms[strings.ToUpper(dir)]; ok {
		return short
	}
	return dir
}

// MentionedDirections scans response text for direction words, in the
// game's own phrasing ("to the north", "a path leads west"). Compound
// names are found before their simple prefixes.
func MentionedDirections(text string) []string {
	upper := strings.ToUpper(text)
	var found []string
	seen := map[string]bool{}
	for _, dir := range Directions {
		if seen[dir] {
			continue
		}
		if containsWord(upper, dir) {
			// "NORTHEAST" contains "NORTH" only as a substring, not as
			// a word, so word matching keeps compounds distinct.
			found = append(found, dir)
			seen[dir] = true
		}
	}
	return found
}

// containsWord reports a whole-word match of w in s (both uppercase).
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
