package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quelltext/provenia/internal/model"
)

// Client talks to a Wikibase Action API endpoint. It implements the entity
// service the merge engine drives: snapshot reads, claim and reference
// writes, and label/alias/description edits.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string

	username string
	password string
	language string

	csrfToken string
}

// NewClient creates a client for the given api.php endpoint. Credentials may
// be empty for read-only use; the first write will then fail. language picks
// the label language for display lookups.
func NewClient(endpoint, userAgent, username, password, language string, timeout time.Duration) *Client {
	if language == "" {
		language = "en"
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout, Jar: newCookieJar()},
		userAgent:  userAgent,
		username:   username,
		password:   password,
		language:   language,
	}
}

// apiError is the error envelope the Action API returns.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// GetEntity fetches a full entity snapshot. refresh is accepted for
// interface symmetry; the client never caches, so every call is fresh.
func (c *Client) GetEntity(ctx context.Context, id string, refresh bool) (*model.Entity, error) {
	_ = refresh

	params := url.Values{
		"action": {"wbgetentities"},
		"ids":    {id},
		"props":  {"labels|aliases|descriptions|claims|sitelinks"},
		"format": {"json"},
	}

	var response struct {
		Error    *apiError              `json:"error"`
		Entities map[string]*wireEntity `json:"entities"`
	}
	if err := c.call(ctx, http.MethodGet, params, &response); err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, response.Error
	}

	wire, ok := response.Entities[id]
	if !ok || wire == nil || wire.Missing != nil {
		return nil, fmt.Errorf("entity %s not found", id)
	}

	return wire.toEntity(), nil
}

// Label returns the entity's label in the configured language, used to
// render ids in operator prompts.
func (c *Client) Label(id string) (string, error) {
	params := url.Values{
		"action":    {"wbgetentities"},
		"ids":       {id},
		"props":     {"labels"},
		"languages": {c.language},
		"format":    {"json"},
	}

	var response struct {
		Error    *apiError `json:"error"`
		Entities map[string]struct {
			Labels map[string]struct {
				Value string `json:"value"`
			} `json:"labels"`
		} `json:"entities"`
	}
	if err := c.call(context.Background(), http.MethodGet, params, &response); err != nil {
		return "", err
	}
	if response.Error != nil {
		return "", response.Error
	}

	return response.Entities[id].Labels[c.language].Value, nil
}

// AddClaim creates a claim on an entity. The value carries the extraction
// stage's string encoding; the wire value type is picked by its sentinel.
func (c *Client) AddClaim(ctx context.Context, entityID, property, value string) (*model.Claim, error) {
	wireValue, err := encodeValue(value)
	if err != nil {
		return nil, err
	}

	token, err := c.editToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"action":   {"wbcreateclaim"},
		"entity":   {entityID},
		"property": {property},
		"snaktype": {"value"},
		"value":    {wireValue},
		"token":    {token},
		"bot":      {"1"},
		"format":   {"json"},
	}

	var response struct {
		Error *apiError `json:"error"`
		Claim *struct {
			ID string `json:"id"`
		} `json:"claim"`
	}
	if err := c.call(ctx, http.MethodPost, params, &response); err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, response.Error
	}
	if response.Claim == nil {
		return nil, fmt.Errorf("create claim %s on %s: empty response", property, entityID)
	}

	return &model.Claim{ID: response.Claim.ID, Property: property, Value: value}, nil
}

// AddSources attaches one reference group to an existing claim.
func (c *Client) AddSources(ctx context.Context, entityID string, claim *model.Claim, source []model.Snak) error {
	if claim.ID == "" {
		return fmt.Errorf("claim %s=%s has no statement id", claim.Property, claim.Value)
	}

	snaks := make(map[string][]json.RawMessage)
	for _, snak := range source {
		wireValue, err := encodeValue(snak.Value)
		if err != nil {
			return err
		}
		raw := fmt.Sprintf(`{"snaktype":"value","property":%q,"datavalue":{"value":%s,"type":%q}}`,
			snak.Property, wireValue, wireType(snak.Value))
		snaks[snak.Property] = append(snaks[snak.Property], json.RawMessage(raw))
	}
	encoded, err := json.Marshal(snaks)
	if err != nil {
		return fmt.Errorf("encode reference: %w", err)
	}

	token, err := c.editToken(ctx)
	if err != nil {
		return err
	}

	params := url.Values{
		"action":    {"wbsetreference"},
		"statement": {claim.ID},
		"snaks":     {string(encoded)},
		"token":     {token},
		"bot":       {"1"},
		"format":    {"json"},
	}

	var response struct {
		Error *apiError `json:"error"`
	}
	if err := c.call(ctx, http.MethodPost, params, &response); err != nil {
		return err
	}
	if response.Error != nil {
		return response.Error
	}
	return nil
}

// EditLabels sets one label per language.
func (c *Client) EditLabels(ctx context.Context, entityID string, labels map[string]string) error {
	for language, value := range labels {
		if err := c.simpleEdit(ctx, "wbsetlabel", entityID, url.Values{
			"language": {language},
			"value":    {value},
		}); err != nil {
			return err
		}
	}
	return nil
}

// EditAliases adds aliases per language, keeping the existing ones.
func (c *Client) EditAliases(ctx context.Context, entityID string, aliases map[string][]string) error {
	for language, values := range aliases {
		if err := c.simpleEdit(ctx, "wbsetaliases", entityID, url.Values{
			"language": {language},
			"add":      {strings.Join(values, "|")},
		}); err != nil {
			return err
		}
	}
	return nil
}

// EditDescriptions sets one description per language.
func (c *Client) EditDescriptions(ctx context.Context, entityID string, descriptions map[string]string) error {
	for language, value := range descriptions {
		if err := c.simpleEdit(ctx, "wbsetdescription", entityID, url.Values{
			"language": {language},
			"value":    {value},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) simpleEdit(ctx context.Context, action, entityID string, extra url.Values) error {
	token, err := c.editToken(ctx)
	if err != nil {
		return err
	}

	params := url.Values{
		"action": {action},
		"id":     {entityID},
		"token":  {token},
		"bot":    {"1"},
		"format": {"json"},
	}
	for key, values := range extra {
		params[key] = values
	}

	var response struct {
		Error *apiError `json:"error"`
	}
	if err := c.call(ctx, http.MethodPost, params, &response); err != nil {
		return err
	}
	if response.Error != nil {
		return response.Error
	}
	return nil
}

// editToken logs in on first use and caches the csrf token for the session.
func (c *Client) editToken(ctx context.Context) (string, error) {
	if c.csrfToken != "" {
		return c.csrfToken, nil
	}
	if c.username == "" {
		return "", fmt.Errorf("no credentials configured, cannot edit")
	}

	loginToken, err := c.fetchToken(ctx, "login")
	if err != nil {
		return "", fmt.Errorf("login token: %w", err)
	}

	params := url.Values{
		"action":     {"login"},
		"lgname":     {c.username},
		"lgpassword": {c.password},
		"lgtoken":    {loginToken},
		"format":     {"json"},
	}
	var login struct {
		Login struct {
			Result string `json:"result"`
		} `json:"login"`
	}
	if err := c.call(ctx, http.MethodPost, params, &login); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if login.Login.Result != "Success" {
		return "", fmt.Errorf("login failed: %s", login.Login.Result)
	}

	token, err := c.fetchToken(ctx, "csrf")
	if err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}
	c.csrfToken = token
	return token, nil
}

func (c *Client) fetchToken(ctx context.Context, kind string) (string, error) {
	params := url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {kind},
		"format": {"json"},
	}
	var response struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	if err := c.call(ctx, http.MethodGet, params, &response); err != nil {
		return "", err
	}
	token := response.Query.Tokens[kind+"token"]
	if token == "" {
		return "", fmt.Errorf("no %s token in response", kind)
	}
	return token, nil
}

// call performs one API request and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	var req *http.Request
	var err error

	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// encodeValue turns the string encoding of a value into the JSON datavalue
// the Action API expects, dispatched on the sentinel prefix.
func encodeValue(value string) (string, error) {
	switch model.Kind(value) {
	case model.KindItem:
		numeric, err := strconv.Atoi(strings.TrimPrefix(value, "Q"))
		if err != nil {
			return "", fmt.Errorf("bad item id %q: %w", value, err)
		}
		return fmt.Sprintf(`{"entity-type":"item","numeric-id":%d}`, numeric), nil
	case model.KindDate:
		return encodeTime(model.Untag(value))
	case model.KindQuantity:
		amount := model.Untag(value)
		if !strings.HasPrefix(amount, "+") && !strings.HasPrefix(amount, "-") {
			amount = "+" + amount
		}
		return fmt.Sprintf(`{"amount":%q,"unit":"1"}`, amount), nil
	case model.KindMedia:
		return strconv.Quote(model.Untag(value)), nil
	default:
		return strconv.Quote(value), nil
	}
}

// Wikibase time precision constants for year, month and day.
const (
	precisionYear  = 9
	precisionMonth = 10
	precisionDay   = 11
)

// encodeTime builds a Wikibase time datavalue from a canonical date string
// ("1680", "1680-05", "1680-05-12").
func encodeTime(canonical string) (string, error) {
	parts := strings.Split(canonical, "-")

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("bad date %q: %w", canonical, err)
	}
	month, day := 0, 0
	precision := precisionYear

	if len(parts) > 1 {
		month, err = strconv.Atoi(parts[1])
		if err != nil {
			return "", fmt.Errorf("bad date %q: %w", canonical, err)
		}
		precision = precisionMonth
	}
	if len(parts) > 2 {
		day, err = strconv.Atoi(parts[2])
		if err != nil {
			return "", fmt.Errorf("bad date %q: %w", canonical, err)
		}
		precision = precisionDay
	}

	stamp := fmt.Sprintf("+%04d-%02d-%02dT00:00:00Z", year, month, day)
	return fmt.Sprintf(
		`{"time":%q,"timezone":0,"before":0,"after":0,"precision":%d,"calendarmodel":"http://www.wikidata.org/entity/Q1985727"}`,
		stamp, precision), nil
}

// wireType maps a value's sentinel to the datavalue type name.
func wireType(value string) string {
	switch model.Kind(value) {
	case model.KindItem:
		return "wikibase-entityid"
	case model.KindDate:
		return "time"
	case model.KindQuantity:
		return "quantity"
	default:
		return "string"
	}
}
