package geo

import "strings"

var nigerianStates = []string{
	"Abia", "Adamawa", "Akwa Ibom", "Anambra", "Bauchi", "Bayelsa", "Benue", "Borno",
	"Cross River", "Delta", "Ebonyi", "Edo", "Ekiti", "Enugu", "Gombe", "Imo",
	"Jigawa", "Kaduna", "Kano", "Katsina", "Kebbi", "Kogi", "Kwara", "Lagos",
	"Nasarawa", "Niger", "Ogun", "Ondo", "Osun", "Oyo", "Plateau", "Rivers",
	"Sokoto", "Taraba", "Yobe", "Zamfara", "Federal Capital Territory",
}

var stateIndex = func() map[string]string {
	m := make(map[string]string, len(nigerianStates)+3)
	for _, s := range nigerianStates {
		m[strings.ToLower(s)] = s
	}
	m["fct"] = "Federal Capital Territory"
	m["abuja"] = "Federal Capital Territory"
	m["nassarawa"] = "Nasarawa"
	return m
}()

// CanonicalState maps a free-text state name ("lagos state", "LAGOS") to its
// canonical spelling.
func CanonicalState(s string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	key = strings.TrimSuffix(key, " state")
	name, ok := stateIndex[key]
	return name, ok
}

// InferState scans the comma-separated segments of a location from last to
// first and returns the first recognised state, or "".
func InferState(location string) string {
	parts := strings.Split(location, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if s, ok := CanonicalState(parts[i]); ok {
			return s
		}
	}
	return ""
}
