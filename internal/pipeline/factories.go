package pipeline

import (
	"fmt"

	"github.com/marshally/pr-agent/internal/ai"
	"github.com/marshally/pr-agent/internal/ai/langchain"
	"github.com/marshally/pr-agent/internal/config"
	"github.com/marshally/pr-agent/internal/providers"
	"github.com/marshally/pr-agent/internal/providers/github"
	"github.com/marshally/pr-agent/internal/providers/gitlab"
	"github.com/marshally/pr-agent/internal/retry"
)

// BuildProvider constructs the adapter named by general.provider, or
// the one matching the URL shape when set to "auto".
func BuildProvider(cfg *config.EffectiveConfig, prURL string) (providers.Provider, error) {
	name := cfg.String("general.provider")
	if name == "" || name == "auto" {
		name = providers.DetectFromURL(prURL)
	}
	retryCfg := retryFromConfig(cfg)

	switch name {
	case "github":
		t := cfg.Table("providers.github")
		return github.New(github.Config{Token: tableString(t, "token")}, retryCfg)
	case "gitlab":
		t := cfg.Table("providers.gitlab")
		return gitlab.New(gitlab.Config{
			URL:   tableString(t, "url"),
			Token: tableString(t, "token"),
		}, retryCfg)
	default:
		return nil, fmt.Errorf("unknown provider %q for %s", name, prURL)
	}
}

// BuildGenerator constructs the feedback generator named by
// general.generator.
func BuildGenerator(cfg *config.EffectiveConfig) (ai.Generator, error) {
	f := ai.NewFactory()
	f.Register("langchain", func(table map[string]interface{}) (ai.Generator, error) {
		return langchain.New(langchain.ConfigFromTable(table), retryFromConfig(cfg))
	})
	f.Register("static", func(map[string]interface{}) (ai.Generator, error) {
		return ai.NewStatic(), nil
	})

	name := cfg.String("general.generator")
	if name == "" {
		name = "langchain"
	}
	return f.Create(name, cfg.Table("ai"))
}

func retryFromConfig(cfg *config.EffectiveConfig) retry.Config {
	rc := retry.DefaultConfig()
	if n := cfg.Int("retry.max_attempts"); n > 0 {
		rc.MaxAttempts = n
	}
	return rc
}

func tableString(t map[string]interface{}, key string) string {
	s, _ := t[key].(string)
	return s
}
