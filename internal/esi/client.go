package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"killboard/internal/config"

	"github.com/valyala/fasthttp"
)

// Client talks to the game's public ESI API. Only the ingestion path uses
// it; the reconstruction engine reads stored rows exclusively.
type Client struct {
	baseURL   string
	userAgent string
	client    *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   cfg.ESIBaseURL,
		userAgent: cfg.ESIUserAgent,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Killmail is the raw killmail payload returned by ESI.
type Killmail struct {
	KillmailID    int64      `json:"killmail_id"`
	KillmailTime  time.Time  `json:"killmail_time"`
	SolarSystemID int64      `json:"solar_system_id"`
	Victim        Victim     `json:"victim"`
	Attackers     []Attacker `json:"attackers"`
}

type Victim struct {
	CharacterID   *int64 `json:"character_id"`
	CorporationID *int64 `json:"corporation_id"`
	AllianceID    *int64 `json:"alliance_id"`
	ShipTypeID    int64  `json:"ship_type_id"`
	DamageTaken   int64  `json:"damage_taken"`
	Items         []Item `json:"items"`
}

type Attacker struct {
	CharacterID    *int64  `json:"character_id"`
	CorporationID  *int64  `json:"corporation_id"`
	AllianceID     *int64  `json:"alliance_id"`
	ShipTypeID     int64   `json:"ship_type_id"`
	WeaponTypeID   int64   `json:"weapon_type_id"`
	DamageDone     int64   `json:"damage_done"`
	FinalBlow      bool    `json:"final_blow"`
	SecurityStatus float64 `json:"security_status"`
}

type Item struct {
	ItemTypeID        int64 `json:"item_type_id"`
	Flag              int   `json:"flag"`
	QuantityDestroyed int64 `json:"quantity_destroyed"`
	QuantityDropped   int64 `json:"quantity_dropped"`
	Singleton         int64 `json:"singleton"`
}

// UniverseName is one resolved id from POST /universe/names/.
type UniverseName struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// MarketDay is one day of regional market history for a type.
type MarketDay struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Average float64 `json:"average"`
	Lowest  float64 `json:"lowest"`
	Highest float64 `json:"highest"`
}

// TypeInfo is the static item-type payload from /universe/types/{id}/.
type TypeInfo struct {
	TypeID  int64  `json:"type_id"`
	Name    string `json:"name"`
	GroupID int64  `json:"group_id"`
}

// GroupInfo is the static group payload carrying the category id the ammo
// check relies on.
type GroupInfo struct {
	GroupID    int64 `json:"group_id"`
	CategoryID int64 `json:"category_id"`
}

// SystemInfo is the static solar system payload.
type SystemInfo struct {
	SystemID       int64   `json:"system_id"`
	Name           string  `json:"name"`
	SecurityStatus float64 `json:"security_status"`
	ConstellationID int64  `json:"constellation_id"`
}

func (c *Client) GetKillmail(ctx context.Context, killmailID int64, hash string) (*Killmail, error) {
	url := fmt.Sprintf("%s/v1/killmails/%d/%s/", c.baseURL, killmailID, hash)
	return doRequest[Killmail](ctx, c, fasthttp.MethodGet, url, nil)
}

func (c *Client) ResolveNames(ctx context.Context, ids []int64) ([]UniverseName, error) {
	url := fmt.Sprintf("%s/v3/universe/names/", c.baseURL)
	body, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	names, err := doRequest[[]UniverseName](ctx, c, fasthttp.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	return *names, nil
}

func (c *Client) GetMarketHistory(ctx context.Context, regionID, typeID int64) ([]MarketDay, error) {
	url := fmt.Sprintf("%s/v1/markets/%d/history/?type_id=%d", c.baseURL, regionID, typeID)
	days, err := doRequest[[]MarketDay](ctx, c, fasthttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return *days, nil
}

func (c *Client) GetType(ctx context.Context, typeID int64) (*TypeInfo, error) {
	url := fmt.Sprintf("%s/v3/universe/types/%d/", c.baseURL, typeID)
	return doRequest[TypeInfo](ctx, c, fasthttp.MethodGet, url, nil)
}

func (c *Client) GetGroup(ctx context.Context, groupID int64) (*GroupInfo, error) {
	url := fmt.Sprintf("%s/v1/universe/groups/%d/", c.baseURL, groupID)
	return doRequest[GroupInfo](ctx, c, fasthttp.MethodGet, url, nil)
}

func (c *Client) GetSystem(ctx context.Context, systemID int64) (*SystemInfo, error) {
	url := fmt.Sprintf("%s/v4/universe/systems/%d/", c.baseURL, systemID)
	return doRequest[SystemInfo](ctx, c, fasthttp.MethodGet, url, nil)
}

func doRequest[T any](ctx context.Context, client *Client, method, url string, body []byte) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("User-Agent", client.userAgent)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
