package config

import (
	"fmt"
	"os"
)

// InitConfig writes a starter configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# pr-agent configuration

[general]
provider = "github"
generator = "langchain"

[providers.github]
token = "your-github-token"

[providers.gitlab]
url = "https://gitlab.example.com"
token = "your-gitlab-token"

[ai]
backend = "googleai"
api_key = "your-api-key"
model = "gemini-1.5-flash"

[review]
inline_comments = true
num_suggestions = 4

[changelog]
file = "CHANGELOG.md"
push = true
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks that a resolved snapshot names a provider and that the
// provider has credentials configured.
func Validate(cfg *EffectiveConfig) error {
	provider := cfg.String("general.provider")
	if provider == "" {
		return fmt.Errorf("general.provider is required")
	}

	providerCfg := cfg.Table("providers." + provider)
	if len(providerCfg) == 0 {
		return fmt.Errorf("configuration for provider %s not found", provider)
	}

	switch provider {
	case "gitlab":
		if _, ok := providerCfg["url"]; !ok {
			return fmt.Errorf("providers.gitlab.url is required")
		}
		if _, ok := providerCfg["token"]; !ok {
			return fmt.Errorf("providers.gitlab.token is required")
		}
	case "github":
		if _, ok := providerCfg["token"]; !ok {
			return fmt.Errorf("providers.github.token is required")
		}
	}

	return nil
}
