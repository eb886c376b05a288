// Package normalization содержит утилиты нормализации наименований
// справочных данных производства (ткани, клиенты).
package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxShortNameTokens максимум слов в коротком имени ткани
const maxShortNameTokens = 2

// стоп-слова, не несущие смысла в коротком имени
var fabricStopWords = map[string]bool{
	"de":   true,
	"del":  true,
	"la":   true,
	"el":   true,
	"con":  true,
	"y":    true,
	"the":  true,
	"of":   true,
	"and":  true,
}

// stripDiacritics убирает диакритические знаки (NFD-разложение + фильтр
// комбинируемых символов)
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// ShortFabricName выводит каноническое короткое отображаемое имя ткани:
// убирает диакритику, схлопывает пробелы, отбрасывает стоп-слова и
// оставляет не больше двух значимых слов в верхнем регистре.
func ShortFabricName(name string) string {
	name = stripDiacritics(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	var tokens []string
	for _, field := range strings.Fields(name) {
		if fabricStopWords[strings.ToLower(field)] {
			continue
		}
		tokens = append(tokens, strings.ToUpper(field))
		if len(tokens) == maxShortNameTokens {
			break
		}
	}

	if len(tokens) == 0 {
		// Имя целиком из стоп-слов — возвращаем как есть
		return strings.ToUpper(name)
	}

	return strings.Join(tokens, " ")
}

// CanonicalClientName извлекает каноническое имя клиента из сырой строки
// заказчика: первый токен, разделители — пробелы и дефисы
func CanonicalClientName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}
