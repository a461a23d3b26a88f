package lang

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]struct {
		code string
		ok   bool
	}{
		"en":      {"en", true},
		"en-US":   {"en", true},
		"pt_BR":   {"pt", true},
		"JA":      {"ja", true},
		" ko ":    {"ko", true},
		"zh-Hant": {"", false},
		"":        {"", false},
		"!!":      {"", false},
	}
	for in, want := range cases {
		code, ok := Parse(in)
		assert.Equal(t, want.ok, ok, in)
		assert.Equal(t, want.code, code, in)
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	code, ok := FromAcceptLanguage("zh-CN,fr-FR;q=0.9,en;q=0.8")
	require.True(t, ok)
	assert.Equal(t, "fr", code)

	// Вес важнее порядка в заголовке.
	code, ok = FromAcceptLanguage("en;q=0.5,de;q=0.9")
	require.True(t, ok)
	assert.Equal(t, "de", code)

	_, ok = FromAcceptLanguage("zh-CN,ru")
	assert.False(t, ok)

	_, ok = FromAcceptLanguage("")
	assert.False(t, ok)
}

func TestResolve_Priority(t *testing.T) {
	all := Sources{Query: "en", User: "ko", Cookie: "es", AcceptLanguage: "fr"}
	assert.Equal(t, "en", Resolve(all))

	all.Query = ""
	assert.Equal(t, "ko", Resolve(all))

	all.User = ""
	assert.Equal(t, "es", Resolve(all))

	all.Cookie = ""
	assert.Equal(t, "fr", Resolve(all))

	all.AcceptLanguage = ""
	assert.Equal(t, Default, Resolve(all))
}

func TestResolve_SkipsUnsupported(t *testing.T) {
	got := Resolve(Sources{Query: "ru", User: "xx-invalid-", Cookie: "it"})
	assert.Equal(t, "it", got)
}

func TestSourcesFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/posts?lang=de", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "ko"})
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	s := SourcesFromRequest(req, "pt")
	assert.Equal(t, Sources{Query: "de", User: "pt", Cookie: "ko", AcceptLanguage: "en-US,en;q=0.9"}, s)
	assert.Equal(t, "de", Resolve(s))
}

func TestSetCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "en")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "en", cookies[0].Value)
}

func TestLanguages(t *testing.T) {
	c := Languages()
	assert.Equal(t, Default, c.DefaultLanguage)
	assert.Len(t, c.SupportedLanguages, 8)
	assert.Equal(t, "한국어", c.LanguageNames["ko"])
	assert.Equal(t, "xx", Name("xx"))
}
