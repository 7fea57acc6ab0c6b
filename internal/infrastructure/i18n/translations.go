package i18n

import (
	"embed"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"share2care/internal/ports/output"
)

//go:embed active.*.toml
var localeFS embed.FS

var _ output.Translator = (*Translator)(nil)

// Translator wraps a go-i18n bundle loaded from the embedded message files.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	log             zerolog.Logger
}

// NewTranslator builds a Translator whose fallback language is defaultLocale
// (English when it does not parse).
func NewTranslator(defaultLocale string, logger zerolog.Logger) *Translator {
	log := logger.With().Str("component", "i18n").Logger()
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		log.Warn().Str("locale", defaultLocale).Msg("unknown default locale, using English")
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.fr.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Error().Err(err).Str("file", file).Msg("failed to load message file")
		}
	}

	return &Translator{bundle: bundle, defaultLanguage: tag, log: log}
}

// Languages lists the tags with loaded messages.
func (t *Translator) Languages() []language.Tag {
	return t.bundle.LanguageTags()
}

// T renders key for locale, which may be a tag or an Accept-Language
// header. Missing messages fall back to the default language, then to key.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	languages := make([]string, 0, 2)
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	msg, err := i18n.NewLocalizer(t.bundle, languages...).Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.log.Debug().Err(err).Str("key", key).Strs("locales", languages).Msg("message not found")
		return key
	}
	return msg
}
