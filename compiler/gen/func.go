package gen

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rules    = inflect.NewDefaultRuleset()
	acronyms = make(map[string]struct{})
)

func init() {
	for _, w := range []string{
		"ACL", "API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP",
		"HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA",
		"SMTP", "SQL", "SSH", "TCP", "TLS", "TTL", "UDP", "UI", "UID", "URI",
		"URL", "UTF8", "UUID", "VM", "XML", "XMPP", "XSRF", "XSS",
	} {
		acronyms[w] = struct{}{}
		rules.AddAcronym(w)
	}
}

// snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' before an uppercase letter that follows a lowercase one
		// ("UserInfo"), or that starts a new word after an acronym ("PHBOrg").
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
}

func pascalWords(ws []string) string {
	caser := cases.Title(language.English, cases.NoLower)
	for i, w := range ws {
		upper := strings.ToUpper(w)
		if _, ok := acronyms[upper]; ok {
			ws[i] = upper
		} else {
			ws[i] = caser.String(w)
		}
	}
	return strings.Join(ws, "")
}

// pascal converts the given name into a PascalCase.
//
//	user_info => UserInfo
//	full_name => FullName
//	user_id   => UserID
func pascal(s string) string {
	return pascalWords(words(s))
}

// camel converts the given name into a camelCase.
//
//	user_info => userInfo
//	user_id   => userID
func camel(s string) string {
	ws := words(s)
	if len(ws) == 0 {
		return ""
	}
	return strings.ToLower(ws[0]) + pascalWords(ws[1:])
}

// receiver returns the receiver name of the given type.
//
//	[]T       => t
//	UserQuery => uq
func receiver(s string) string {
	s = strings.Trim(s, "[]*&0123456789")
	var b strings.Builder
	for _, w := range strings.Split(snake(s), "_") {
		if w != "" {
			b.WriteByte(w[0])
		}
	}
	name := b.String()
	if token.Lookup(name).IsKeyword() {
		name = "_" + name
	}
	return name
}

// plural returns the plural form of the name. Uncountable names get a
// "Slice" suffix.
func plural(name string) string {
	p := rules.Pluralize(name)
	if p == name {
		p += "Slice"
	}
	return p
}

// singular returns the singular form of the name.
func singular(name string) string {
	return rules.Singularize(name)
}
