// Package upstream translates caller requests into the backend's dialect
// and performs the HTTP exchange with the backend service.
package upstream

// modelAliases maps the model names callers commonly send to the backend
// identifiers that serve them. Lookups miss to the Resolver's probe.
var modelAliases = map[string]string{
	"deepseek-chat":     "deepseek-chat",
	"deepseek-reasoner": "deepseek-reasoner",
	"gpt-3.5-turbo":     "deepseek-chat",
	"gpt-4":             "deepseek-chat",
	"gpt-4-turbo":       "deepseek-chat",
	"gpt-4o":            "deepseek-chat",
	"gpt-4o-mini":       "deepseek-chat",
	"o1":                "deepseek-reasoner",
	"o1-mini":           "deepseek-reasoner",
	"o3-mini":           "deepseek-reasoner",
}

// AliasedModels returns the caller-facing model names, one per alias,
// sorted by the caller for presentation.
func AliasedModels() []string {
	names := make([]string, 0, len(modelAliases))
	for name := range modelAliases {
		names = append(names, name)
	}
	return names
}
