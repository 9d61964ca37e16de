package nlp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type numberClass int

const (
	classUnit numberClass = iota
	classTeen
	classTen
	classHundred
	classThousand
)

type numberWord struct {
	value int
	class numberClass
}

var numberWords = map[string]numberWord{
	"zero": {0, classUnit}, "um": {1, classUnit}, "uma": {1, classUnit},
	"dois": {2, classUnit}, "duas": {2, classUnit}, "tres": {3, classUnit},
	"quatro": {4, classUnit}, "cinco": {5, classUnit}, "seis": {6, classUnit},
	"sete": {7, classUnit}, "oito": {8, classUnit}, "nove": {9, classUnit},

	"dez": {10, classTeen}, "onze": {11, classTeen}, "doze": {12, classTeen},
	"treze": {13, classTeen}, "quatorze": {14, classTeen}, "catorze": {14, classTeen},
	"quinze": {15, classTeen}, "dezesseis": {16, classTeen}, "dezasseis": {16, classTeen},
	"dezessete": {17, classTeen}, "dezoito": {18, classTeen}, "dezenove": {19, classTeen},

	"vinte": {20, classTen}, "trinta": {30, classTen}, "quarenta": {40, classTen},
	"cinquenta": {50, classTen}, "sessenta": {60, classTen}, "setenta": {70, classTen},
	"oitenta": {80, classTen}, "noventa": {90, classTen},

	"cem": {100, classHundred}, "cento": {100, classHundred},
	"duzentos": {200, classHundred}, "duzentas": {200, classHundred},
	"trezentos": {300, classHundred}, "trezentas": {300, classHundred},
	"quatrocentos": {400, classHundred}, "quinhentos": {500, classHundred},
	"seiscentos": {600, classHundred}, "setecentos": {700, classHundred},
	"oitocentos": {800, classHundred}, "novecentos": {900, classHundred},

	"mil": {1000, classThousand},
}

var currencyWords = map[string]bool{"reais": true, "real": true, "conto": true, "contos": true, "pila": true, "pilas": true}

var (
	reaisCentavosPattern = regexp.MustCompile(`\b(\d+) (?:reais|real) e (\d{1,2}) centavos?\b`)
	comCentsPattern      = regexp.MustCompile(`\b(\d+) com (\d{2})\b(\s+\p{L}+)?`)
	digitsAndCentsReais  = regexp.MustCompile(`\b(\d+) e (\d{2}) (reais|real)\b`)
	onlyCentavosPattern  = regexp.MustCompile(`(^|[^,\d] )(\d{1,2}) centavos?\b`)
)

// numberGroup accumulates one spoken cardinal such as "cento e vinte e tres".
type numberGroup struct {
	thousands int
	current   int
	words     int
	onlyOne   bool
}

func (g *numberGroup) value() int {
	return g.thousands + g.current
}

// accept reports whether w can extend the cardinal. Portuguese never places a
// ten after a teen or unit, so "dezenove e noventa" starts a second group.
func (g *numberGroup) accept(w numberWord) bool {
	if g.words == 0 {
		return true
	}
	rest := g.current % 100
	switch w.class {
	case classThousand:
		return g.thousands == 0
	case classHundred:
		return g.current == 0
	case classTen, classTeen:
		return rest == 0
	case classUnit:
		return rest == 0 || (rest >= 20 && rest%10 == 0)
	}
	return false
}

func (g *numberGroup) add(w numberWord, raw string) {
	if w.class == classThousand {
		base := g.current
		if base == 0 {
			base = 1
		}
		g.thousands = base * 1000
		g.current = 0
	} else {
		g.current += w.value
	}
	g.onlyOne = g.words == 0 && (raw == "um" || raw == "uma")
	g.words++
}

// SpokenToDigits rewrites spelled-out numbers in normalized text as digits and
// fuses spoken reais/centavos pairs into a single decimal amount, so that
// "dezenove e noventa e oito reais" and "19 reais e 98 centavos" both become
// "19,98 reais".
func SpokenToDigits(text string) string {
	words := strings.Fields(text)
	var out []string

	for i := 0; i < len(words); {
		bare, _ := splitTrailingComma(words[i])
		if _, ok := numberWords[bare]; !ok {
			out = append(out, words[i])
			i++
			continue
		}

		groups, consumed, trailing := parseNumberRun(words[i:])
		next := ""
		if i+consumed < len(words) {
			next, _ = splitTrailingComma(words[i+consumed])
		}

		switch {
		case len(groups) == 1 && groups[0].onlyOne && !currencyWords[next] && trailing == "":
			// "um"/"uma" on their own are articles.
			out = append(out, words[i])
			i++
			continue
		case len(groups) == 2 && groups[1].value() < 100 && (currencyWords[next] || precededByCue(out)):
			out = append(out, fmt.Sprintf("%d,%02d%s", groups[0].value(), groups[1].value(), trailing))
		default:
			parts := make([]string, len(groups))
			for j, g := range groups {
				parts[j] = strconv.Itoa(g.value())
			}
			out = append(out, strings.Join(parts, " e ")+trailing)
		}
		i += consumed
	}

	result := strings.Join(out, " ")
	result = reaisCentavosPattern.ReplaceAllStringFunc(result, func(m string) string {
		sub := reaisCentavosPattern.FindStringSubmatch(m)
		return fmt.Sprintf("%s,%s reais", sub[1], padCents(sub[2]))
	})
	result = digitsAndCentsReais.ReplaceAllString(result, "$1,$2 $3")
	result = comCentsPattern.ReplaceAllStringFunc(result, func(m string) string {
		sub := comCentsPattern.FindStringSubmatch(m)
		if sub[3] != "" && unitNouns[strings.TrimSpace(sub[3])] {
			return m
		}
		return sub[1] + "," + sub[2] + sub[3]
	})
	result = onlyCentavosPattern.ReplaceAllStringFunc(result, func(m string) string {
		sub := onlyCentavosPattern.FindStringSubmatch(m)
		return sub[1] + "0," + padCents(sub[2]) + " reais"
	})
	return result
}

// parseNumberRun consumes number words (and the "e" connectors between them)
// from the head of words. trailing is a clause comma glued to the last word.
func parseNumberRun(words []string) (groups []*numberGroup, consumed int, trailing string) {
	cur := &numberGroup{}
	for consumed < len(words) {
		bare, comma := splitTrailingComma(words[consumed])
		if bare == "e" && consumed > 0 && comma == "" && consumed+1 < len(words) {
			nextBare, _ := splitTrailingComma(words[consumed+1])
			if _, ok := numberWords[nextBare]; ok {
				consumed++
				continue
			}
			break
		}
		w, ok := numberWords[bare]
		if !ok {
			break
		}
		if !cur.accept(w) {
			groups = append(groups, cur)
			cur = &numberGroup{}
		}
		cur.add(w, bare)
		consumed++
		if comma != "" {
			trailing = comma
			break
		}
	}
	if cur.words > 0 {
		groups = append(groups, cur)
	}
	return groups, consumed, trailing
}

func precededByCue(out []string) bool {
	if len(out) == 0 {
		return false
	}
	last := out[len(out)-1]
	return !strings.HasSuffix(last, ",") && valueCues[last]
}

func splitTrailingComma(w string) (string, string) {
	if strings.HasSuffix(w, ",") {
		return strings.TrimSuffix(w, ","), ","
	}
	return w, ""
}

func padCents(c string) string {
	if len(c) == 1 {
		return "0" + c
	}
	return c
}
