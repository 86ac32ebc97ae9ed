package pxls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

// bufferResource is the path of one raw byte-per-pixel board resource.
type bufferResource string

const (
	bufferColors        bufferResource = "boarddata"
	bufferInitialColors bufferResource = "initialboarddata"
	bufferPlacemask     bufferResource = "placemap"
	bufferHeatmap       bufferResource = "heatmap"
	bufferVirginmap     bufferResource = "virginmap"
)

// Color is one palette entry. The service encodes values as css-style
// hex strings ("#RRGGBB").
type Color struct {
	Name  string
	Value [3]uint8
}

func (self *Color) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	trimmed := strings.TrimPrefix(raw.Value, "#")
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return fmt.Errorf("palette color %q: %w", raw.Value, err)
	}
	self.Name = raw.Name
	self.Value = [3]uint8{uint8(v >> 16), uint8(v >> 8), uint8(v)}
	return nil
}

type CooldownType string

const (
	CooldownActivity CooldownType = "activity"
	CooldownStatic   CooldownType = "static"
)

type ActivityCooldown struct {
	Steepness float32 `json:"steepness"`
}

type CooldownInfo struct {
	Type                  CooldownType     `json:"type"`
	StaticCooldownSeconds int              `json:"staticCooldownSeconds"`
	ActivityCooldown      ActivityCooldown `json:"activityCooldown"`
}

type AuthService struct {
	Id                  string `json:"id"`
	Name                string `json:"name"`
	RegistrationEnabled bool   `json:"registrationEnabled"`
}

type Emoji struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

// BoardInfo is the canvas metadata document. Immutable once fetched.
// Width and Height define the linear index space of every pixel buffer.
type BoardInfo struct {
	CanvasCode            string                 `json:"canvasCode"`
	Width                 int                    `json:"width"`
	Height                int                    `json:"height"`
	Palette               []Color                `json:"palette"`
	CooldownInfo          CooldownInfo           `json:"cooldownInfo"`
	CaptchaKey            string                 `json:"captchaKey"`
	HeatmapCooldown       int                    `json:"heatmapCooldown"`
	MaxStacked            int                    `json:"maxStacked"`
	AuthServices          map[string]AuthService `json:"authServices"`
	RegistrationEnabled   bool                   `json:"registrationEnabled"`
	ChatEnabled           bool                   `json:"chatEnabled"`
	ChatRespectsCanvasBan bool                   `json:"chatRespectsCanvasBan"`
	ChatCharacterLimit    int                    `json:"chatCharacterLimit"`
	ChatBannerText        []string               `json:"chatBannerText"`
	SnipMode              bool                   `json:"snipMode"`
	CustomEmoji           []Emoji                `json:"customEmoji"`
	CorsBase              string                 `json:"corsBase"`
	CorsParam             string                 `json:"corsParam"`
	ChatRatelimitMessage  string                 `json:"chatRatelimitMessage"`
}

// FalseOrString decodes a field the stats document encodes as either
// the json literal false or a string.
type FalseOrString struct {
	Set   bool
	Value string
}

func (self *FalseOrString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("false")) {
		self.Set = false
		self.Value = ""
		return nil
	}
	if err := json.Unmarshal(b, &self.Value); err != nil {
		return err
	}
	self.Set = true
	return nil
}

// StatsTimestamp parses the "generatedAt" format, e.g.
// "2021/08/15 - 12:00:00 (CEST)". Abbreviation-only zones carry no
// offset in Go; the document is passthrough so this is tolerated.
type StatsTimestamp struct {
	time.Time
}

const statsTimestampLayout = "2006/01/02 - 15:04:05 (MST)"

func (self *StatsTimestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(statsTimestampLayout, s)
	if err != nil {
		return err
	}
	self.Time = t
	return nil
}

type StatsMilestoneEntry struct {
	Pretty string        `json:"pretty"`
	Intval uint64        `json:"intval"`
	User   FalseOrString `json:"res"`
}

type StatsGeneral struct {
	TotalUsers            uint64                `json:"total_users"`
	TotalPixelsPlaced     uint64                `json:"total_pixels_placed"`
	UsersActiveThisCanvas uint64                `json:"users_active_this_canvas"`
	TotalFactions         uint64                `json:"total_factions"`
	NthList               []StatsMilestoneEntry `json:"nth_list"`
}

type StatsUserEntry struct {
	Username string `json:"username"`
	Pixels   uint64 `json:"pixels"`
	Place    int    `json:"place"`
}

type StatsColorEntry struct {
	ColorId int    `json:"colorID"`
	Count   uint64 `json:"count"`
	Place   int    `json:"place"`
}

type StatsFactionEntry struct {
	Fid           int    `json:"fid"`
	Faction       string `json:"Faction"`
	CanvasPixels  uint64 `json:"Canvas_Pixels"`
	AlltimePixels uint64 `json:"Alltime_Pixels"`
	MemberCount   uint64 `json:"Member_Count"`
}

type StatsBreakdown struct {
	Users  []StatsUserEntry  `json:"users"`
	Colors []StatsColorEntry `json:"colors"`
}

type StatsBreakdowns struct {
	Last15m  StatsBreakdown `json:"last15m"`
	LastHour StatsBreakdown `json:"lastHour"`
	LastDay  StatsBreakdown `json:"lastDay"`
	LastWeek StatsBreakdown `json:"lastWeek"`
}

type StatsTopList struct {
	Alltime []StatsUserEntry `json:"alltime"`
	Canvas  []StatsUserEntry `json:"canvas"`
}

type StatsBoardInfo struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Palette []Color `json:"palette"`
}

// Stats is the auxiliary statistics document. It is fetched on demand
// and never cached.
type Stats struct {
	General     StatsGeneral        `json:"general"`
	Breakdown   StatsBreakdowns     `json:"breakdown"`
	Toplist     StatsTopList        `json:"toplist"`
	Factions    []StatsFactionEntry `json:"factions"`
	BoardInfo   StatsBoardInfo      `json:"board_info"`
	GeneratedAt StatsTimestamp      `json:"generatedAt"`
}

func (self *Client) getBytes(ctx context.Context, path string) ([]byte, error) {
	location := self.siteBase.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, location.String(), nil)
	if err != nil {
		return nil, &RequestError{Kind: RequestErrorHttp, Path: path, Err: err}
	}
	response, err := self.httpClient.Do(request)
	if err != nil {
		return nil, &RequestError{Kind: RequestErrorHttp, Path: path, Err: err}
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, &RequestError{
			Kind: RequestErrorHttp,
			Path: path,
			Err:  fmt.Errorf("status %s", response.Status),
		}
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &RequestError{Kind: RequestErrorBody, Path: path, Err: err}
	}
	return body, nil
}

func (self *Client) getJson(ctx context.Context, path string, result any) error {
	body, err := self.getBytes(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &RequestError{Kind: RequestErrorParse, Path: path, Err: err}
	}
	return nil
}

// fetchPixelBuffer fetches one raw board resource and checks it against
// the cached board dimensions. The info fetch happens first so that the
// length invariant is checkable at fill time.
func (self *Client) fetchPixelBuffer(ctx context.Context, resource bufferResource) ([]byte, error) {
	info, err := self.Info(ctx)
	if err != nil {
		return nil, err
	}
	info.RLock()
	expected := info.Value.Width * info.Value.Height
	info.RUnlock()

	buffer, err := self.getBytes(ctx, string(resource))
	if err != nil {
		return nil, err
	}
	if len(buffer) != expected {
		return nil, &RequestError{
			Kind: RequestErrorFormat,
			Path: string(resource),
			Err:  fmt.Errorf("buffer length %d, board is %d pixels", len(buffer), expected),
		}
	}
	return buffer, nil
}

// Stats fetches the statistics document. Passthrough, no caching.
func (self *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := self.getJson(ctx, "stats/stats.json", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
