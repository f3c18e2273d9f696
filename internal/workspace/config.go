package workspace

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up at the workspace root. Editor-provided LSP
// settings override anything set here.
const ConfigFileName = ".beancount-lsp.yaml"

// Config is the optional project-level configuration file. It mirrors the
// settings the editor can send, so a ledger checked out on a new machine
// works before any editor setup.
type Config struct {
	Main            string `yaml:"main"`
	Python          string `yaml:"python"`
	CheckerScript   string `yaml:"checkerScript"`
	SeparatorColumn int    `yaml:"separatorColumn"`
	PayeeNarration  *bool  `yaml:"payeeNarration"`
}

// LoadConfig reads ConfigFileName under root. A missing or malformed file
// yields (zero, false); a config file must never break the server.
func LoadConfig(root string) (Config, bool) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if err != nil {
		return Config{}, false
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false
	}
	return cfg, true
}
