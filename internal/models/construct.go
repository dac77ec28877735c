package models

// Construct is a persona that can speak in a conversation
type Construct struct {
	ID                string   `json:"id"`
	Rev               int      `json:"rev,omitempty"`
	Name              string   `json:"name"`
	Nickname          string   `json:"nickname"`
	Avatar            string   `json:"avatar"`
	Commands          []string `json:"commands"`
	VisualDescription string   `json:"visualDescription"`
	Personality       string   `json:"personality"`
	Background        string   `json:"background"`
	Relationships     []string `json:"relationships"`
	Interests         []string `json:"interests"`
	Greetings         []string `json:"greetings"`
	Farewells         []string `json:"farewells"`
}

// Command is a stored slash-style command definition
type Command struct {
	ID          string `json:"id"`
	Rev         int    `json:"rev,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Trigger     string `json:"trigger"`
	Response    string `json:"response"`
}

// FindConstruct returns the construct with the given id, falling back to a
// case-insensitive name match.
func FindConstruct(constructs []Construct, key string) (Construct, bool) {
	for _, c := range constructs {
		if c.ID == key {
			return c, true
		}
	}
	for _, c := range constructs {
		if equalFold(c.Name, key) {
			return c, true
		}
	}
	return Construct{}, false
}
