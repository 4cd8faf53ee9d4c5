package models

// Parameter names emitted for terminology expansion configuration.
const (
	ParamSystemVersion    = "system-version"
	ParamCanonicalVersion = "canonicalVersion"
)

// Parameter is one named value with optional annotations.
type Parameter struct {
	Name       string            `json:"name"`
	Value      string            `json:"value"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// Parameters is a configuration document.
type Parameters struct {
	ID         string      `json:"id,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

// Values returns every value of the named parameter in order.
func (p *Parameters) Values(name string) []string {
	var values []string

	for _, param := range p.Parameters {
		if param.Name == name {
			values = append(values, param.Value)
		}
	}

	return values
}
