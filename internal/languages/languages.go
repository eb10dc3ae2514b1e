// ABOUTME: Embedded table of languages offered for chat translation
// ABOUTME: Provides lookup and validation of ISO 639-1 codes

// Package languages holds the set of languages the platform can translate
// between. The table ships embedded in the binary so every deployment offers
// the same list; adding a language means editing languages.toml and rebuilding.
package languages

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Default is the language assumed when a participant has none recorded.
const Default = "en"

//go:embed languages.toml
var languagesTOML []byte

// Language is one entry in the embedded table.
type Language struct {
	Code string `toml:"code" json:"code"`
	Name string `toml:"name" json:"name"`
}

var (
	all    []Language
	byCode map[string]Language
)

func init() {
	var table struct {
		Languages []Language `toml:"language"`
	}
	if err := toml.Unmarshal(languagesTOML, &table); err != nil {
		panic(fmt.Sprintf("languages: failed to parse embedded table: %v", err))
	}
	all = table.Languages
	byCode = make(map[string]Language, len(all))
	for _, l := range all {
		byCode[l.Code] = l
	}
	if _, ok := byCode[Default]; !ok {
		panic("languages: embedded table is missing the default language")
	}
}

// All returns every supported language in table order.
// The returned slice is shared; callers must not modify it.
func All() []Language {
	return all
}

// Supported reports whether code names a language the platform can translate.
func Supported(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Name returns the display name for a code, or the code itself if unknown.
func Name(code string) string {
	if l, ok := byCode[code]; ok {
		return l.Name
	}
	return code
}

// Resolve maps an empty or unknown code to the default language. Message
// routing uses this so a participant with no recorded language still gets
// a well-formed translation request.
func Resolve(code string) string {
	if Supported(code) {
		return code
	}
	return Default
}
