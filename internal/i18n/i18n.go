package i18n

import (
	"path"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/ngguard/resources"
)

const (
	defaultLanguage = "en"
	resourcesPath   = "i18n"
)

var state = struct {
	sync.RWMutex
	translations map[string]map[string]string
}{
	translations: make(map[string]map[string]string),
}

func load(lang string) map[string]string {
	state.RLock()
	translations, ok := state.translations[lang]
	state.RUnlock()
	if ok {
		return translations
	}

	state.Lock()
	defer state.Unlock()
	if translations, ok := state.translations[lang]; ok {
		return translations
	}

	translations = make(map[string]string)
	content, err := resources.FS.ReadFile(path.Join(resourcesPath, lang+".yml"))
	if err != nil {
		log.WithError(err).WithField("language", lang).Errorln("cant load i18n")
	} else if err := yaml.Unmarshal(content, &translations); err != nil {
		log.WithError(err).WithField("language", lang).Errorln("cant unmarshal i18n")
	}
	state.translations[lang] = translations
	return translations
}

// Get returns the translation of key, falling back to key itself.
// Keys are the English texts.
func Get(key, lang string) string {
	if lang == defaultLanguage || lang == "" {
		return key
	}
	if res, ok := load(lang)[key]; ok {
		return res
	}
	log.WithField("language", lang).Tracef(`no translation for key "%s"`, key)
	return key
}

// GetLanguagesList lists the built-in language and every embedded translation.
func GetLanguagesList() []string {
	languages := []string{defaultLanguage}
	entries, err := resources.FS.ReadDir(resourcesPath)
	if err != nil {
		log.WithError(err).Errorln("cant list i18n resources")
		return languages
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yml") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(name, ".yml"))
	}
	sort.Strings(languages)
	return languages
}
