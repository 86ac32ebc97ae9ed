package pxls

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestColorUnmarshal(t *testing.T) {
	var color Color
	err := json.Unmarshal([]byte(`{"name":"Orange","value":"#FF8000"}`), &color)
	assert.Equal(t, nil, err)
	assert.Equal(t, "Orange", color.Name)
	assert.Equal(t, [3]uint8{255, 128, 0}, color.Value)

	// the hash prefix is optional
	err = json.Unmarshal([]byte(`{"name":"Blue","value":"0000FF"}`), &color)
	assert.Equal(t, nil, err)
	assert.Equal(t, [3]uint8{0, 0, 255}, color.Value)

	err = json.Unmarshal([]byte(`{"name":"Bad","value":"#GGGGGG"}`), &color)
	assert.NotEqual(t, nil, err)
}

func TestFalseOrString(t *testing.T) {
	var entry StatsMilestoneEntry
	err := json.Unmarshal([]byte(`{"pretty":"1,000,000th","intval":1000000,"res":false}`), &entry)
	assert.Equal(t, nil, err)
	assert.Equal(t, false, entry.User.Set)

	err = json.Unmarshal([]byte(`{"pretty":"2,000,000th","intval":2000000,"res":"somebody"}`), &entry)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, entry.User.Set)
	assert.Equal(t, "somebody", entry.User.Value)
}

func TestStatsTimestampParse(t *testing.T) {
	var ts StatsTimestamp
	err := json.Unmarshal([]byte(`"2021/08/15 - 12:30:45 (UTC)"`), &ts)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2021, ts.Year())
	assert.Equal(t, 15, ts.Day())
	assert.Equal(t, 12, ts.Hour())
	assert.Equal(t, 45, ts.Second())
}

func TestBoardInfoParse(t *testing.T) {
	site := newTestSite(100, 50, 180)
	defer site.close()

	client := site.newClient(t, nil)
	info, err := client.Info(context.Background())
	assert.Equal(t, nil, err)

	info.RLock()
	defer info.RUnlock()
	assert.Equal(t, "13", info.Value.CanvasCode)
	assert.Equal(t, 100, info.Value.Width)
	assert.Equal(t, 50, info.Value.Height)
	assert.Equal(t, 180, info.Value.HeatmapCooldown)
	assert.Equal(t, 2, len(info.Value.Palette))
	assert.Equal(t, [3]uint8{255, 0, 0}, info.Value.Palette[1].Value)
	assert.Equal(t, CooldownStatic, info.Value.CooldownInfo.Type)
	assert.Equal(t, 60, info.Value.CooldownInfo.StaticCooldownSeconds)
}

func TestStatsPassthrough(t *testing.T) {
	site := newTestSite(2, 2, 300)
	defer site.close()
	site.setStatsJson(`{
		"general": {
			"total_users": 12345,
			"total_pixels_placed": 67890,
			"users_active_this_canvas": 42,
			"total_factions": 7,
			"nth_list": [{"pretty": "60,000,000th", "intval": 60000000, "res": "somebody"}]
		},
		"breakdown": {
			"last15m": {"users": [{"username": "a", "pixels": 3, "place": 1}], "colors": []},
			"lastHour": {"users": [], "colors": []},
			"lastDay": {"users": [], "colors": []},
			"lastWeek": {"users": [], "colors": []}
		},
		"toplist": {"alltime": [], "canvas": []},
		"factions": [{"fid": 1, "Faction": "reds", "Canvas_Pixels": 10, "Alltime_Pixels": 20, "Member_Count": 3}],
		"board_info": {"width": 2, "height": 2, "palette": []},
		"generatedAt": "2021/08/15 - 12:00:00 (UTC)"
	}`)

	client := site.newClient(t, nil)
	stats, err := client.Stats(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(12345), stats.General.TotalUsers)
	assert.Equal(t, "somebody", stats.General.NthList[0].User.Value)
	assert.Equal(t, "a", stats.Breakdown.Last15m.Users[0].Username)
	assert.Equal(t, "reds", stats.Factions[0].Faction)
	assert.Equal(t, 2021, stats.GeneratedAt.Year())

	// stats is passthrough, fetched every call
	_, err = client.Stats(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, site.requestCount("/stats/stats.json"))
}

func TestRequestErrorKinds(t *testing.T) {
	site := newTestSite(2, 2, 300)
	site.setStatsJson(`{not json`)
	client := site.newClient(t, nil)

	_, err := client.Stats(context.Background())
	var requestErr *RequestError
	assert.Equal(t, true, errors.As(err, &requestErr))
	assert.Equal(t, RequestErrorParse, requestErr.Kind)
	assert.Equal(t, "stats/stats.json", requestErr.Path)

	// transport errors carry the http kind
	site.close()
	_, err = client.Stats(context.Background())
	assert.Equal(t, true, errors.As(err, &requestErr))
	assert.Equal(t, RequestErrorHttp, requestErr.Kind)
}
