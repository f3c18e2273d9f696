package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.lsp.dev/protocol"

	"github.com/beanls/beancount-lsp/internal/beancheck"
	"github.com/beanls/beancount-lsp/internal/formatter"
)

type featureSettings struct {
	Diagnostics  bool
	Completion   bool
	Formatting   bool
	Folding      bool
	InlayHints   bool
	Autofill     bool
	FormatOnSave bool
}

type serverSettings struct {
	Python          string
	CheckerScript   string
	CheckerTimeout  time.Duration
	MainFile        string
	DateFormat      string
	SeparatorColumn int
	PayeeNarration  bool
	FlagSeverity    map[string]string
	Features        featureSettings
}

func defaultServerSettings() serverSettings {
	return serverSettings{
		Python:          "python3",
		CheckerScript:   "beancheck.py",
		CheckerTimeout:  beancheck.DefaultTimeout,
		DateFormat:      "2006-01-02",
		SeparatorColumn: formatter.DefaultSeparatorColumn,
		FlagSeverity:    map[string]string{"!": "warning"},
		Features: featureSettings{
			Diagnostics: true,
			Completion:  true,
			Formatting:  true,
			Folding:     true,
			InlayHints:  true,
			Autofill:    true,
		},
	}
}

func normalizeServerSettings(settings serverSettings) serverSettings {
	defaults := defaultServerSettings()
	if settings.Python == "" {
		settings.Python = defaults.Python
	}
	if settings.CheckerScript == "" {
		settings.CheckerScript = defaults.CheckerScript
	}
	if settings.CheckerTimeout <= 0 {
		settings.CheckerTimeout = defaults.CheckerTimeout
	}
	if settings.DateFormat == "" {
		settings.DateFormat = defaults.DateFormat
	}
	if settings.SeparatorColumn <= 0 {
		settings.SeparatorColumn = defaults.SeparatorColumn
	}
	if len(settings.FlagSeverity) == 0 {
		settings.FlagSeverity = defaults.FlagSeverity
	}
	return settings
}

func (s *Server) setSettings(settings serverSettings) {
	settings = normalizeServerSettings(settings)
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
}

func (s *Server) getSettings() serverSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *Server) refreshConfiguration(ctx context.Context) {
	if s.client == nil {
		return
	}
	result, err := s.client.Configuration(ctx, &protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{
			{Section: "beancount"},
		},
	})
	if err != nil || len(result) == 0 {
		return
	}
	settings := parseSettingsFromRaw(s.getSettings(), result[0])
	s.setSettings(settings)
	s.reinitChecker()
}

func (s *Server) DidChangeConfiguration(_ context.Context, params *protocol.DidChangeConfigurationParams) error {
	if params != nil && params.Settings != nil {
		settings := parseSettingsFromRaw(s.getSettings(), params.Settings)
		s.setSettings(settings)
		s.reinitChecker()
		return nil
	}
	go s.refreshConfiguration(context.Background())
	return nil
}

func parseSettingsFromRaw(base serverSettings, raw interface{}) serverSettings {
	settings := base
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return normalizeServerSettings(settings)
	}
	if nested, ok := rawMap["beancount"]; ok {
		return parseSettingsFromRaw(settings, nested)
	}
	settings = applySettingsMap(settings, rawMap)
	return normalizeServerSettings(settings)
}

func applySettingsMap(settings serverSettings, raw map[string]interface{}) serverSettings {
	if value, ok := raw["python"].(string); ok && value != "" {
		settings.Python = value
	}
	if value, ok := raw["checkerScript"].(string); ok && value != "" {
		settings.CheckerScript = value
	}
	if value, ok := raw["mainFile"].(string); ok {
		settings.MainFile = value
	}
	if value, ok := raw["dateFormat"].(string); ok && value != "" {
		settings.DateFormat = value
	}
	if value, ok := toInt(raw["separatorColumn"]); ok {
		settings.SeparatorColumn = value
	}
	if value, ok := toInt(raw["checkerTimeoutSeconds"]); ok && value > 0 {
		settings.CheckerTimeout = time.Duration(value) * time.Second
	}
	if value, ok := raw["payeeNarration"].(bool); ok {
		settings.PayeeNarration = value
	}

	if severities, ok := raw["flagSeverity"].(map[string]interface{}); ok {
		parsed := make(map[string]string, len(severities))
		for flag, level := range severities {
			if name, ok := level.(string); ok {
				parsed[flag] = strings.ToLower(name)
			}
		}
		if len(parsed) > 0 {
			settings.FlagSeverity = parsed
		}
	}

	if features, ok := raw["features"].(map[string]interface{}); ok {
		applyFeature(features, "diagnostics", &settings.Features.Diagnostics)
		applyFeature(features, "completion", &settings.Features.Completion)
		applyFeature(features, "formatting", &settings.Features.Formatting)
		applyFeature(features, "folding", &settings.Features.Folding)
		applyFeature(features, "inlayHints", &settings.Features.InlayHints)
		applyFeature(features, "autofill", &settings.Features.Autofill)
		applyFeature(features, "formatOnSave", &settings.Features.FormatOnSave)
	}

	return settings
}

func applyFeature(raw map[string]interface{}, key string, target *bool) {
	if value, ok := raw[key].(bool); ok {
		*target = value
	}
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
