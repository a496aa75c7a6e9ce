package i18n

import (
	"embed"
	"encoding/json"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
)

// DefaultLang is used when the request carries no known language.
const DefaultLang = "en"

//go:embed resources/*.json
var resources embed.FS

var (
	once         sync.Once
	translations = make(map[string]map[string]string)
)

// Init loads the embedded translation tables. It is safe to call more than once.
func Init() {
	once.Do(func() {
		files, _ := resources.ReadDir("resources")
		for _, f := range files {
			if path.Ext(f.Name()) != ".json" {
				continue
			}
			lang := strings.TrimSuffix(f.Name(), ".json")
			data, err := resources.ReadFile(path.Join("resources", f.Name()))
			if err != nil {
				continue
			}
			var t map[string]string
			if err := json.Unmarshal(data, &t); err != nil {
				continue
			}
			translations[lang] = t
		}
	})
}

func T(lang, key string) string {
	Init()
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	// Fallback to en
	if t, ok := translations[DefaultLang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	return key
}

// GetLang reads the lang cookie, falling back to DefaultLang for unknown values.
func GetLang(r *http.Request) string {
	cookie, err := r.Cookie("lang")
	if err == nil && IsSupported(cookie.Value) {
		return cookie.Value
	}
	return DefaultLang
}

func IsSupported(lang string) bool {
	Init()
	_, ok := translations[lang]
	return ok
}

func GetAvailableLangs() []string {
	Init()
	langs := []string{}
	for l := range translations {
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		return []string{"en", "hu"}
	}
	sort.Strings(langs)
	return langs
}
