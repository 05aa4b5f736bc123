package process

// Config describes an external command, e.g. a trainer for model types the
// native trainer does not support.
type Config struct {
	Name        string            `yaml:"name" json:"name" mapstructure:"name"`
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Description string            `yaml:"description" json:"description" mapstructure:"description"`
}

// Enabled reports whether a command is configured.
func (c Config) Enabled() bool { return c.Command != "" }
