package wiki

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"

	"github.com/quelltext/provenia/internal/model"
)

// wireEntity is the wbgetentities JSON shape of one entity.
type wireEntity struct {
	ID      string      `json:"id"`
	Missing interface{} `json:"missing"`

	Labels map[string]struct {
		Value string `json:"value"`
	} `json:"labels"`
	Aliases map[string][]struct {
		Value string `json:"value"`
	} `json:"aliases"`
	Descriptions map[string]struct {
		Value string `json:"value"`
	} `json:"descriptions"`
	Claims map[string][]wireClaim `json:"claims"`
	SiteLinks map[string]struct {
		Title string `json:"title"`
	} `json:"sitelinks"`
}

type wireClaim struct {
	ID         string     `json:"id"`
	MainSnak   wireSnak   `json:"mainsnak"`
	References []struct {
		Snaks      map[string][]wireSnak `json:"snaks"`
		SnaksOrder []string              `json:"snaks-order"`
	} `json:"references"`
}

type wireSnak struct {
	SnakType  string `json:"snaktype"`
	Property  string `json:"property"`
	Datatype  string `json:"datatype"`
	DataValue struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"datavalue"`
}

// toEntity converts the wire shape to the snapshot model. Claims with a
// novalue/somevalue main snak or an undecodable value are dropped; the
// engine only reconciles against concrete values.
func (w *wireEntity) toEntity() *model.Entity {
	entity := &model.Entity{
		ID:           w.ID,
		Labels:       make(map[string]string),
		Aliases:      make(map[string][]string),
		Descriptions: make(map[string]string),
		Claims:       make(map[string][]*model.Claim),
		SiteLinks:    make(map[string]string),
	}

	for language, label := range w.Labels {
		entity.Labels[language] = label.Value
	}
	for language, aliases := range w.Aliases {
		for _, alias := range aliases {
			entity.Aliases[language] = append(entity.Aliases[language], alias.Value)
		}
	}
	for language, description := range w.Descriptions {
		entity.Descriptions[language] = description.Value
	}
	for site, link := range w.SiteLinks {
		entity.SiteLinks[site] = link.Title
	}

	for property, claims := range w.Claims {
		for _, claim := range claims {
			value, ok := decodeSnak(claim.MainSnak)
			if !ok {
				continue
			}
			converted := &model.Claim{
				ID:       claim.ID,
				Property: property,
				Value:    value,
				Datatype: claim.MainSnak.Datatype,
			}
			for _, reference := range claim.References {
				converted.Sources = append(converted.Sources, decodeReference(reference.Snaks, reference.SnaksOrder))
			}
			entity.Claims[property] = append(entity.Claims[property], converted)
		}
	}

	return entity
}

func decodeReference(snaks map[string][]wireSnak, order []string) []model.Snak {
	var group []model.Snak
	if len(order) == 0 {
		for property := range snaks {
			order = append(order, property)
		}
	}
	for _, property := range order {
		for _, snak := range snaks[property] {
			if value, ok := decodeSnak(snak); ok {
				group = append(group, model.Snak{Property: property, Value: value})
			}
		}
	}
	return group
}

// decodeSnak turns a wire snak into the string encoding the rest of the
// engine works with.
func decodeSnak(snak wireSnak) (string, bool) {
	if snak.SnakType != "value" {
		return "", false
	}

	switch snak.DataValue.Type {
	case "string":
		var s string
		if err := json.Unmarshal(snak.DataValue.Value, &s); err != nil {
			return "", false
		}
		if snak.Datatype == "commonsMedia" {
			return model.TagMedia(s), true
		}
		return s, true

	case "wikibase-entityid":
		var v struct {
			ID        string `json:"id"`
			NumericID int    `json:"numeric-id"`
		}
		if err := json.Unmarshal(snak.DataValue.Value, &v); err != nil {
			return "", false
		}
		if v.ID != "" {
			return v.ID, true
		}
		return "Q" + strconv.Itoa(v.NumericID), true

	case "time":
		var v struct {
			Time      string `json:"time"`
			Precision int    `json:"precision"`
		}
		if err := json.Unmarshal(snak.DataValue.Value, &v); err != nil {
			return "", false
		}
		canonical, ok := canonicalTime(v.Time, v.Precision)
		if !ok {
			return "", false
		}
		return model.TagDate(canonical), true

	case "quantity":
		var v struct {
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(snak.DataValue.Value, &v); err != nil {
			return "", false
		}
		return model.TagQuantity(strings.TrimPrefix(v.Amount, "+")), true

	case "globecoordinate":
		var v struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := json.Unmarshal(snak.DataValue.Value, &v); err != nil {
			return "", false
		}
		return fmt.Sprintf("%g,%g", v.Latitude, v.Longitude), true

	default:
		return "", false
	}
}

// canonicalTime reduces a wire timestamp ("+1680-05-12T00:00:00Z") to the
// canonical date string for its precision.
func canonicalTime(stamp string, precision int) (string, bool) {
	trimmed := strings.TrimPrefix(stamp, "+")
	date, _, ok := strings.Cut(trimmed, "T")
	if !ok || strings.HasPrefix(date, "-") {
		return "", false
	}

	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return "", false
	}
	year := strings.TrimLeft(parts[0], "0")
	if year == "" {
		return "", false
	}

	switch {
	case precision >= precisionDay:
		return fmt.Sprintf("%s-%s-%s", year, parts[1], parts[2]), true
	case precision == precisionMonth:
		return fmt.Sprintf("%s-%s", year, parts[1]), true
	default:
		return year, true
	}
}

// newCookieJar builds the jar login sessions need. cookiejar.New only fails
// on a bad options pointer, so nil options cannot fail.
func newCookieJar() http.CookieJar {
	jar, _ := cookiejar.New(nil)
	return jar
}
