// Package i18n holds the translated progress messages shown during a release.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a message. The key is also the English text.
type Key string

// Progress and outcome messages.
const (
	MsgUnauthorized       Key = "This command can only be used in local environment."
	MsgNoCommits          Key = "No commit detected."
	MsgEnsuringVersion    Key = "Ensuring the app version exists."
	MsgReplacingVersion   Key = "Replacing the app config value."
	MsgVersionReplaced    Key = "App config value replaced."
	MsgUpdatingChangelog  Key = "Updating the changelog."
	MsgChangelogUpdated   Key = "Changelog updated."
	MsgPushingFiles       Key = "Pushing files."
	MsgFilesPushed        Key = "Files pushed."
	MsgCreatingTag        Key = "Creating tag."
	MsgTagCreated         Key = "Tag created."
	MsgConfirmRelease     Key = "Release %s (%d commits)?"
	MsgReleaseDone        Key = "Version %s released."
	MsgReleaseCancelled   Key = "Release cancelled."
	MsgHistoryRecordError Key = "Could not record the release in history: %v"
)

// translations maps a language to its non-English texts.
var translations = map[language.Tag]map[Key]string{
	language.French: {
		MsgUnauthorized:       "Cette commande ne peut être utilisée qu'en environnement local.",
		MsgNoCommits:          "Aucun commit détecté.",
		MsgEnsuringVersion:    "Vérification de la présence de la version de l'application.",
		MsgReplacingVersion:   "Remplacement de la valeur de configuration de l'application.",
		MsgVersionReplaced:    "Valeur de configuration de l'application remplacée.",
		MsgUpdatingChangelog:  "Mise à jour du changelog.",
		MsgChangelogUpdated:   "Changelog mis à jour.",
		MsgPushingFiles:       "Envoi des fichiers.",
		MsgFilesPushed:        "Fichiers envoyés.",
		MsgCreatingTag:        "Création du tag.",
		MsgTagCreated:         "Tag créé.",
		MsgConfirmRelease:     "Publier %s (%d commits) ?",
		MsgReleaseDone:        "Version %s publiée.",
		MsgReleaseCancelled:   "Publication annulée.",
		MsgHistoryRecordError: "Impossible d'enregistrer la publication dans l'historique : %v",
	},
}

var allKeys = []Key{
	MsgUnauthorized, MsgNoCommits, MsgEnsuringVersion, MsgReplacingVersion,
	MsgVersionReplaced, MsgUpdatingChangelog, MsgChangelogUpdated, MsgPushingFiles,
	MsgFilesPushed, MsgCreatingTag, MsgTagCreated, MsgConfirmRelease,
	MsgReleaseDone, MsgReleaseCancelled, MsgHistoryRecordError,
}

// Supported lists the available languages; the first is the fallback.
var Supported = []language.Tag{language.English, language.French}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(Supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, k := range allKeys {
		_ = b.SetString(language.English, string(k), string(k))
	}
	for tag, texts := range translations {
		for k, text := range texts {
			_ = b.SetString(tag, string(k), text)
		}
	}
	return b
}

// Printer formats messages in one language.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// Match resolves a language name such as "fr", "fr_CA" or "en-US" to a
// supported tag, falling back to English.
func Match(lang string) language.Tag {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return language.English
	}
	requested, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, _ := matcher.Match(requested)
	return Supported[idx]
}

// NewPrinter creates a Printer for lang.
func NewPrinter(lang string) *Printer {
	tag := Match(lang)
	return &Printer{
		tag: tag,
		p:   message.NewPrinter(tag, message.Catalog(cat)),
	}
}

// Language returns the resolved language.
func (p *Printer) Language() language.Tag {
	return p.tag
}

// Sprintf formats key with args.
func (p *Printer) Sprintf(key Key, args ...interface{}) string {
	return p.p.Sprintf(string(key), args...)
}
