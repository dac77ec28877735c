package models

// EndpointType names an inference backend kind
type EndpointType string

const (
	EndpointKobold      EndpointType = "Kobold"
	EndpointOoba        EndpointType = "Ooba"
	EndpointOAI         EndpointType = "OAI"
	EndpointHorde       EndpointType = "Horde"
	EndpointProxyOAI    EndpointType = "P-OAI"
	EndpointProxyClaude EndpointType = "P-Claude"
	EndpointPaLM        EndpointType = "PaLM"
)

// Connection is the stored connection info for the inference backend.
// Endpoint holds a base URL for URL-addressed kinds and the API key for OAI, Horde and PaLM.
type Connection struct {
	EndpointType EndpointType `json:"endpointType"`
	Endpoint     string       `json:"endpoint"`
	Password     string       `json:"password"`
	HordeModel   string       `json:"hordeModel"`
}

// Alias maps a surface user to the name personas should address them by.
// Location is the channel the alias was set in.
type Alias struct {
	UserID   string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// RegisteredChannel is a conversation surface the bot is allowed to reply in.
// Constructs scopes personas to the channel; it is stored but not yet consulted.
type RegisteredChannel struct {
	ID         string   `json:"id"`
	GuildID    string   `json:"guildId"`
	Constructs []string `json:"constructs"`
	Aliases    []Alias  `json:"aliases"`
}

// Valid reports whether t names a supported backend
func (t EndpointType) Valid() bool {
	switch t {
	case EndpointKobold, EndpointOoba, EndpointOAI, EndpointHorde, EndpointProxyOAI, EndpointProxyClaude, EndpointPaLM:
		return true
	}
	return false
}
