package utility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_YAML(t *testing.T) {
	var parsed struct {
		Every Duration `yaml:"every"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("every: 2m30s\n"), &parsed))
	assert.Equal(t, 150*time.Second, parsed.Every.Std())

	out, err := yaml.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, "every: 2m30s\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("every: soon\n"), &parsed))
}
