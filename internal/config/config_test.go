package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"mcpServers": {
			"maps": {
				"command": "npx",
				"args": ["-y", "example-maps-server"],
				"env": {"MAPS_API_KEY": "test"}
			},
			"food": {
				"command": "python",
				"args": ["-m", "food_server"]
			}
		}
	}`)

	configs, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	// Sorted by name.
	require.Equal(t, "food", configs[0].Name)
	require.Equal(t, "python", configs[0].Command)
	require.Equal(t, []string{"-m", "food_server"}, configs[0].Args)

	require.Equal(t, "maps", configs[1].Name)
	require.Equal(t, map[string]string{"MAPS_API_KEY": "test"}, configs[1].Env)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: `{`},
		{name: "no servers", data: `{"mcpServers": {}}`},
		{name: "missing command", data: `{"mcpServers": {"a": {"args": ["x"]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"echo": {"command": "cat"}}}`), 0o600))

	configs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "echo", configs[0].Name)
	require.Equal(t, "cat", configs[0].Command)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.Error(t, ServerConfig{Command: "cat"}.Validate())
	require.Error(t, ServerConfig{Name: "a"}.Validate())
	require.NoError(t, ServerConfig{Name: "a", Command: "cat"}.Validate())
}
