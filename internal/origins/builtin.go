package origins

import (
	"regexp"

	"github.com/quelltext/provenia/internal/model"
)

// Builtin returns the origin rule tables shipped with provenia. Each entry is
// configuration data for the generic dispatcher: regexes over the fetched
// page plus metadata for sourcing. Additional tables can be loaded from YAML
// at startup (see loader.go).
func Builtin() []*Rules {
	return []*Rules{
		viaf(),
		gnd(),
		isni(),
		loc(),
		bnf(),
		idref(),
		imdb(),
		findagrave(),
		ulan(),
		wikipedia(),
		wikidata(),
	}
}

// viaf covers the Virtual International Authority File. VIAF aggregates
// national catalogs, so its pages passively confirm many other identifiers
// through the cross-reference scanner.
func viaf() *Rules {
	return &Rules{
		Name:        "Virtual International Authority File",
		Property:    "P214",
		Item:        "Q54919",
		URLTemplate: "https://viaf.org/viaf/$1/",
		IDPattern:   regexp.MustCompile(`^\d{1,22}$`),
		Identity: []PropertyRule{
			{Property: model.PropInstanceOf, Rule: Rule{
				Pattern:  regexp.MustCompile(`"nameType":\s*"([^"]+)"`),
				Category: "instanceof",
			}},
		},
		Names: []NameRule{
			{Language: "en", Pattern: regexp.MustCompile(`"subfield":\s*\{[^{}]*"code":\s*"a",\s*"#text":\s*"([^"]+)"`), All: true},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`"birthDate":\s*"([\d-]+)"`)},
			{Property: "P570", Pattern: regexp.MustCompile(`"deathDate":\s*"([\d-]+)"`)},
		},
		Multis: []PropertyRule{
			{Property: "P27", Rule: Rule{
				Pattern:  regexp.MustCompile(`"nationalityOfEntity":[^\]]*?"text":\s*"([A-Za-z ]+)"`),
				Category: "country",
			}},
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`"occupation":[^\]]*?"text":\s*"([^"]+)"`),
				Category: "occupation",
				Exclude:  []string{"city"},
			}},
		},
	}
}

// gnd covers the Gemeinsame Normdatei of the Deutsche Nationalbibliothek.
func gnd() *Rules {
	return &Rules{
		Name:        "Gemeinsame Normdatei",
		Property:    "P227",
		Item:        "Q36578",
		URLTemplate: "https://d-nb.info/gnd/$1",
		IDPattern:   regexp.MustCompile(`^1[0-9X-]{7,11}$|^[0-9X-]{8,11}$`),
		Hosts:       []string{"d-nb.info"},
		Region:      regexp.MustCompile(`(?s)<table[^<>]*id="fullRecordTable"[^<>]*>(.*?)</table>`),
		Identity: []PropertyRule{
			{Property: model.PropInstanceOf, Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Typ</strong>.*?<td[^<>]*>([^<]+)<`),
				Category: "instanceof",
			}},
		},
		Singles: []PropertyRule{
			{Property: "P21", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Geschlecht</strong>.*?<td[^<>]*>([^<]+)<`),
				Category: "gender",
			}},
			{Property: "P19", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Geburtsort[^<]*</strong>.*?<td[^<>]*>([^<]+)<`),
				Category: "city",
			}},
			{Property: "P20", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Sterbeort[^<]*</strong>.*?<td[^<>]*>([^<]+)<`),
				Category: "city",
			}},
		},
		Multis: []PropertyRule{
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Beruf\(e\)</strong>.*?<td[^<>]*>([^<]+)<`),
				Category: "occupation",
				Exclude:  []string{"city"},
				Alt:      []string{"function"},
			}},
			{Property: "P27", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)L&#228;ndercode[^<]*</strong>.*?<td[^<>]*>([^<]+)<`),
				Category: "country",
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`Lebensdaten</strong>[^<]*<td[^<>]*>\s*([\d.]+)\s*-`)},
			{Property: "P570", Pattern: regexp.MustCompile(`Lebensdaten</strong>[^<]*<td[^<>]*>\s*[\d.]+\s*-\s*([\d.]+)`)},
			{
				Property:   "P1317",
				Pattern:    regexp.MustCompile(`Wirkungsdaten</strong>[^<]*<td[^<>]*>\s*([\d-]+)`),
				RangeStart: "P2031",
				RangeEnd:   "P2032",
			},
		},
		Names: []NameRule{
			{Language: "de", Pattern: regexp.MustCompile(`(?s)Andere Namen</strong>.*?<td[^<>]*>([^<]+)<`), All: true},
		},
	}
}

// isni covers the International Standard Name Identifier registry.
func isni() *Rules {
	return &Rules{
		Name:        "International Standard Name Identifier",
		Property:    model.PropISNI,
		Item:        "Q423048",
		URLTemplate: "https://isni.org/isni/$1",
		IDPattern:   regexp.MustCompile(`^\d{15}[\dX]$|^\d{4} \d{4} \d{4} \d{3}[\dX]$`),
		PlainText:   true,
		Names: []NameRule{
			{Language: "en", Pattern: regexp.MustCompile(`Name:\s*([^\n(]+?)\s*(?:\(|$)`), All: true},
		},
		Singles: []PropertyRule{
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`Creation role:\s*([a-z ]+)`),
				Category: "occupation",
			}},
		},
	}
}

// loc covers Library of Congress name authorities.
func loc() *Rules {
	return &Rules{
		Name:        "Library of Congress authority ID",
		Property:    "P244",
		Item:        "Q13219454",
		URLTemplate: "https://id.loc.gov/authorities/names/$1.html",
		IDPattern:   regexp.MustCompile(`^(?:gf|n|nb|nr|no|ns|sh|sj)(?:[4-9][0-9]|00|20[0-2][0-9])\d{6}$|^[a-z]+\d+$`),
		Identity: []PropertyRule{
			{Property: model.PropInstanceOf, Rule: Rule{
				Pattern:  regexp.MustCompile(`<title>([A-Za-z ]+) - LC Linked Data Service`),
				Category: "instanceof",
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`<li[^<>]*property="madsrdf:birthDate"[^<>]*>\s*\(?([\d-]+)\)?`)},
			{Property: "P570", Pattern: regexp.MustCompile(`<li[^<>]*property="madsrdf:deathDate"[^<>]*>\s*\(?([\d-]+)\)?`)},
		},
		Multis: []PropertyRule{
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`madsrdf:occupation[^<>]*>\s*<[^<>]*>([^<]+)<`),
				Category: "occupation",
			}},
		},
		Names: []NameRule{
			{Language: "en", Pattern: regexp.MustCompile(`skos:prefLabel[^<>]*>([^<]+)<`)},
		},
	}
}

// bnf covers the Bibliothèque nationale de France catalogue général.
func bnf() *Rules {
	return &Rules{
		Name:        "Bibliothèque nationale de France ID",
		Property:    "P268",
		Item:        "Q19938912",
		URLTemplate: "https://data.bnf.fr/ark:/12148/cb$1",
		IDPattern:   regexp.MustCompile(`^\d{8}[0-9bcdfghjkmnpqrstvwxz]$`),
		Hosts:       []string{"data.bnf.fr"},
		Singles: []PropertyRule{
			{Property: "P21", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Sexe\s*:\s*</span>\s*([^<]+)<`),
				Category: "gender",
			}},
			{Property: "P1412", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Langue\(s\)\s*:\s*</span>\s*([^<,]+)`),
				Category: "language",
			}},
		},
		Multis: []PropertyRule{
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`(?s)Note\s*:\s*</span>\s*([A-ZÉ][a-zé]+(?:eur|iste|ain|ien|ier))\b`),
				Category: "occupation",
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`Naissance\s*:\s*</span>\s*([\d-]+)`)},
			{Property: "P570", Pattern: regexp.MustCompile(`Mort\s*:\s*</span>\s*([\d-]+)`)},
		},
		Descriptions: []DescriptionRule{
			{Language: "fr", Pattern: regexp.MustCompile(`(?s)<meta name="description" content="([^"]+)"`)},
		},
	}
}

// idref covers IdRef, the SUDOC authority file.
func idref() *Rules {
	return &Rules{
		Name:        "IdRef ID",
		Property:    "P269",
		Item:        "Q47757534",
		URLTemplate: "https://www.idref.fr/$1",
		IDPattern:   regexp.MustCompile(`^\d{8}[\dX]$`),
		Hosts:       []string{"idref.fr"},
		PlainText:   true,
		Singles: []PropertyRule{
			{Property: "P21", Rule: Rule{
				Pattern:  regexp.MustCompile(`Sexe\s*:\s*(\w+)`),
				Category: "gender",
			}},
			{Property: "P19", Rule: Rule{
				Pattern:  regexp.MustCompile(`Naissance\s*:[^,]*,\s*([^)\n]+)\)`),
				Category: "city",
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`Naissance\s*:\s*([\d-]+)`)},
			{Property: "P570", Pattern: regexp.MustCompile(`Mort\s*:\s*([\d-]+)`)},
		},
	}
}

// imdb covers the Internet Movie Database.
func imdb() *Rules {
	return &Rules{
		Name:        "IMDb ID",
		Property:    "P345",
		Item:        "Q37312",
		URLTemplate: "https://www.imdb.com/name/$1/",
		IDPattern:   regexp.MustCompile(`^(?:ch|co|ev|nm|tt)\d{6,10}$`),
		Hosts:       []string{"imdb.com"},
		NoCrossref:  true,
		Identity: []PropertyRule{
			{Property: model.PropInstanceOf, Rule: Rule{
				Pattern:  regexp.MustCompile(`"@type":\s*"(Person|Movie|TVSeries)"`),
				Category: "instanceof",
			}},
		},
		Singles: []PropertyRule{
			{Property: "P19", Rule: Rule{
				Pattern:  regexp.MustCompile(`"birthPlace":\s*"([^"]+)"`),
				Category: "city",
			}},
		},
		Multis: []PropertyRule{
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`"jobTitle":\s*"([^"]+)"`),
				Category: "occupation",
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`"birthDate":\s*"([\d-]+)"`)},
			{Property: "P570", Pattern: regexp.MustCompile(`"deathDate":\s*"([\d-]+)"`)},
		},
		Quantities: []PropertyRule{
			{Property: "P2048", Rule: Rule{
				Pattern: regexp.MustCompile(`"height":[^}]*"name":\s*"[^"]*\((\d+(?:\.\d+)?) m\)"`),
			}},
		},
		Descriptions: []DescriptionRule{
			{Language: "en", Pattern: regexp.MustCompile(`"description":\s*"([^"]+)"`)},
		},
	}
}

// findagrave covers the Find a Grave burial database.
func findagrave() *Rules {
	return &Rules{
		Name:        "Find a Grave memorial ID",
		Property:    "P535",
		Item:        "Q63056",
		URLTemplate: "https://www.findagrave.com/memorial/$1",
		IDPattern:   regexp.MustCompile(`^\d+$`),
		Hosts:       []string{"findagrave.com"},
		Singles: []PropertyRule{
			{Property: "P119", Rule: Rule{
				Pattern:  regexp.MustCompile(`"cemeteryName":\s*"([^"]+)"`),
				Category: "cemetery",
			}},
		},
		SplitNames: []PropertyRule{
			{Property: "P735", Rule: Rule{
				Pattern: regexp.MustCompile(`"firstName":\s*"([^"\s]+)`),
			}},
			{Property: "P734", Rule: Rule{
				Pattern: regexp.MustCompile(`"lastName":\s*"([^"]+)"`),
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`"birthDate":\s*"([\d-]+)"`)},
			{Property: "P570", Pattern: regexp.MustCompile(`"deathDate":\s*"([\d-]+)"`)},
		},
		Media: []PropertyRule{
			{Property: "P18", Rule: Rule{
				Pattern: regexp.MustCompile(`"primaryPhoto":[^}]*"fileName":\s*"([^"]+)"`),
			}},
		},
		Reported: []PropertyRule{
			{Property: model.PropCoordinates, Rule: Rule{
				Pattern: regexp.MustCompile(`"latitude":\s*([\d.-]+),\s*"longitude":\s*([\d.-]+)`),
			}},
		},
	}
}

// ulan covers the Getty Union List of Artist Names, reached through the
// Getty SPARQL endpoint rather than a page fetch.
func ulan() *Rules {
	return &Rules{
		Name:       "Union List of Artist Names ID",
		Property:   "P245",
		Item:       "Q2494649",
		QueryBased: true,
		IDPattern:  regexp.MustCompile(`^500\d{6}$`),
		Sparql: &Sparql{
			Endpoint: "http://vocab.getty.edu/sparql",
			Query: `SELECT ?pred ?label WHERE {
  ulan:$1 ?p ?obj .
  ?p rdfs:label ?pred .
  ?obj rdfs:label ?label .
  FILTER (lang(?label) = "en")
}`,
		},
		Singles: []PropertyRule{
			{Property: "P21", Rule: Rule{
				Pattern:  regexp.MustCompile(`gender\t([a-z]+)`),
				Category: "gender",
			}},
			{Property: "P27", Rule: Rule{
				Pattern:  regexp.MustCompile(`nationality\t([A-Za-z]+)`),
				Category: "country",
			}},
		},
		Multis: []PropertyRule{
			{Property: "P106", Rule: Rule{
				Pattern:  regexp.MustCompile(`role\t([a-z ]+)`),
				Category: "occupation",
			}},
		},
		Dates: []DateRule{
			{Property: "P569", Pattern: regexp.MustCompile(`birth date\t(\d+)`)},
			{Property: "P570", Pattern: regexp.MustCompile(`death date\t(\d+)`)},
		},
	}
}

// wikipedia handles the synthetic Wiki pseudo-property: every interlanguage
// link on the entity becomes a quasi-claim routed here. Wikipedia articles
// carry authority-control templates, so the cross-reference scanner does
// most of the work.
func wikipedia() *Rules {
	return &Rules{
		Name:     "Wikipedia",
		Property: model.PropWiki,
		IsWiki:   true,
		HideURL:  true,
		Names: []NameRule{
			{Language: "en", Pattern: regexp.MustCompile(`<h1[^<>]*id="firstHeading"[^<>]*>(?:<[^<>]+>)*([^<]+)<`)},
		},
		Reported: []PropertyRule{
			{Property: model.PropCoordinates, Rule: Rule{
				Pattern: regexp.MustCompile(`class="geo-dec"[^<>]*>([^<]+)<`),
			}},
		},
	}
}

// wikidata handles the synthetic Data pseudo-property: a self-reference that
// lets identifier scanners run over the entity's own flattened record.
func wikidata() *Rules {
	return &Rules{
		Name:        "Wikidata",
		Property:    model.PropData,
		Item:        "Q2013",
		IsWiki:      true,
		HideURL:     true,
		URLTemplate: "https://www.wikidata.org/wiki/Special:EntityData/$1.json",
	}
}
