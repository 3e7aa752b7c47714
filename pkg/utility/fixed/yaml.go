package fixed

import (
	"github.com/govalues/decimal"
	"gopkg.in/yaml.v3"
)

func (p Point) MarshalYAML() (any, error) {
	return p.String(), nil
}

// UnmarshalYAML parses the raw scalar text, so quoted and bare numbers both
// keep their exact decimal representation.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return &yaml.TypeError{Errors: []string{"fixed: expected scalar"}}
	}
	v, err := decimal.Parse(value.Value)
	if err != nil {
		return err
	}
	p.v = v
	return nil
}
