// Package lang решает, на каком языке показывать контент зрителю.
package lang

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	// Default - язык по умолчанию, когда ни один источник не подошел.
	Default = "ja"
	// QueryParam - параметр запроса с явным выбором языка.
	QueryParam = "lang"
	// CookieName хранит выбор зрителя между запросами.
	CookieName = "preferred_lang"
)

var supported = []string{"ja", "en", "ko", "es", "pt", "fr", "it", "de"}

var names = map[string]string{
	"ja": "日本語",
	"en": "English",
	"ko": "한국어",
	"es": "Español",
	"pt": "Português",
	"fr": "Français",
	"it": "Italiano",
	"de": "Deutsch",
}

// Supported возвращает коды поддерживаемых языков в порядке каталога.
func Supported() []string {
	return slices.Clone(supported)
}

// IsSupported сообщает, поддерживается ли код языка как есть.
func IsSupported(code string) bool {
	return slices.Contains(supported, code)
}

// Name возвращает самоназвание языка или сам код, если язык неизвестен.
func Name(code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return code
}

// Parse приводит BCP 47 тег (en-US, pt_BR, JA) к базовому языку
// и сообщает, поддерживается ли он.
func Parse(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	code := base.String()
	if !IsSupported(code) {
		return "", false
	}
	return code, true
}

// FromAcceptLanguage возвращает первый поддерживаемый язык из заголовка
// Accept-Language с учетом весов q.
func FromAcceptLanguage(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return "", false
	}
	for _, tag := range tags {
		base, _ := tag.Base()
		if code := base.String(); IsSupported(code) {
			return code, true
		}
	}
	return "", false
}

// Sources - все места, откуда может прийти язык зрителя.
type Sources struct {
	Query          string // явный выбор (?lang=)
	User           string // сохраненная настройка пользователя
	Cookie         string
	AcceptLanguage string // язык браузера
}

// Resolve применяет цепочку приоритетов:
// явный выбор > настройка пользователя > cookie > Accept-Language > Default.
// Неподдерживаемые значения пропускаются.
func Resolve(s Sources) string {
	for _, v := range []string{s.Query, s.User, s.Cookie} {
		if code, ok := Parse(v); ok {
			return code
		}
	}
	if code, ok := FromAcceptLanguage(s.AcceptLanguage); ok {
		return code
	}
	return Default
}

// SourcesFromRequest собирает источники языка из HTTP запроса.
// userLang - сохраненная настройка, если пользователь известен.
func SourcesFromRequest(r *http.Request, userLang string) Sources {
	s := Sources{User: userLang}
	if r == nil {
		return s
	}
	s.Query = r.URL.Query().Get(QueryParam)
	if c, err := r.Cookie(CookieName); err == nil {
		s.Cookie = c.Value
	}
	s.AcceptLanguage = r.Header.Get("Accept-Language")
	return s
}

// SetCookie сохраняет выбранный язык у клиента на год.
func SetCookie(w http.ResponseWriter, code string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    code,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Catalog - ответ /api/languages.
type Catalog struct {
	SupportedLanguages []string          `json:"supported_languages"`
	DefaultLanguage    string            `json:"default_language"`
	LanguageNames      map[string]string `json:"language_names"`
}

// Languages возвращает каталог поддерживаемых языков.
func Languages() Catalog {
	n := make(map[string]string, len(names))
	for k, v := range names {
		n[k] = v
	}
	return Catalog{
		SupportedLanguages: Supported(),
		DefaultLanguage:    Default,
		LanguageNames:      n,
	}
}
