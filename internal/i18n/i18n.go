package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/llm-translator-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}

	// Load language files
	for _, lang := range languages {
		if _, err := bundle.LoadMessageFileFS(locales, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang, cfg.DefaultLanguage, "en")
	}

	defaultLanguage := cfg.DefaultLanguage
	if _, ok := localizers[defaultLanguage]; !ok {
		defaultLanguage = languages[0]
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: defaultLanguage,
		localizers:      localizers,
	}, nil
}

// DefaultLanguage returns the language used when none is requested.
func (l *Localizer) DefaultLanguage() string {
	return l.defaultLanguage
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgTitleSuccess         = "title_success"
	MsgTitleWarning         = "title_warning"
	MsgTitleError           = "title_error"
	MsgTranslationDone      = "translation_done"
	MsgTranslationCopied    = "translation_copied"
	MsgTranslationCached    = "translation_cached"
	MsgTranslationCancelled = "translation_cancelled"
	MsgNoSelection          = "no_selection"
	MsgEmptySelection       = "empty_selection"
	MsgOnlyWhitespace       = "only_whitespace"
	MsgClipboardTimeout     = "clipboard_timeout"
	MsgClipboardUnavailable = "clipboard_unavailable"
	MsgTextTooLong          = "text_too_long"
	MsgTooManyTokens        = "too_many_tokens"
	MsgBinaryData           = "binary_data"
	MsgRateLimitMinute      = "rate_limit_minute"
	MsgRateLimitDaily       = "rate_limit_daily"
	MsgQueueFull            = "queue_full"
	MsgBusy                 = "busy"
	MsgAPIAuth              = "api_auth"
	MsgAPIRateLimited       = "api_rate_limited"
	MsgAPITimeout           = "api_timeout"
	MsgAPIServer            = "api_server"
	MsgAPITransport         = "api_transport"
	MsgAPIRequest           = "api_request"
	MsgAPIMalformed         = "api_malformed"
	MsgPasteFailed          = "paste_failed"
	MsgError                = "error"
	MsgHotkeyRegistered     = "hotkey_registered"
	MsgHotkeyFallback       = "hotkey_fallback"
	MsgHotkeyUnavailable    = "hotkey_unavailable"
	MsgPresetChanged        = "preset_changed"

	MsgActionRetryLater   = "action_retry_later"
	MsgActionCheckAPIKey  = "action_check_api_key"
	MsgActionSelectText   = "action_select_text"
	MsgActionShortenText  = "action_shorten_text"
	MsgActionChangeHotkey = "action_change_hotkey"
)
