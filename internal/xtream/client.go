// Package xtream is the portal client for the Xtream codes player API.
// All catalog listings go through player_api.php; stream playback URLs are
// built locally from the credentials and never fetched.
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/iptvdeck/iptvdeck/internal/catalog"
	"github.com/iptvdeck/iptvdeck/internal/httpclient"
	"github.com/iptvdeck/iptvdeck/internal/metrics"
)

// StreamKind selects the playback URL path segment.
type StreamKind string

const (
	KindLive   StreamKind = "live"
	KindMovie  StreamKind = "movie"
	KindSeries StreamKind = "series"
)

// Client talks to one portal. Safe for concurrent use.
type Client struct {
	base    string
	user    string
	pass    string
	http    *http.Client
	limiter *rate.Limiter
	policy  httpclient.RetryPolicy
}

// New returns a client for the portal at base. reqPerSec paces catalog
// requests; <= 0 disables pacing.
func New(base, user, pass string, reqPerSec float64, client *http.Client) (*Client, error) {
	base = strings.TrimSuffix(strings.TrimSpace(base), "/")
	if base == "" || user == "" || pass == "" {
		return nil, &ValidationError{Msg: "xtream: server, username and password are required"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, &ValidationError{Msg: fmt.Sprintf("xtream: server %q must be http(s)", base)}
	}
	if client == nil {
		client = httpclient.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if reqPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(reqPerSec), 1)
	}
	return &Client{
		base:    base,
		user:    user,
		pass:    pass,
		http:    client,
		limiter: limiter,
		policy:  httpclient.DefaultRetryPolicy,
	}, nil
}

// SetRetryPolicy overrides the default bounded-retry policy.
func (c *Client) SetRetryPolicy(p httpclient.RetryPolicy) {
	c.policy = p
}

// AccountInfo is the subset of the auth response we care about.
type AccountInfo struct {
	Username  string
	Status    string
	ExpiresAt string
}

func (c *Client) apiURL(action string, params url.Values) string {
	u := c.base + "/player_api.php?username=" + url.QueryEscape(c.user) + "&password=" + url.QueryEscape(c.pass)
	if action != "" {
		u += "&action=" + action
	}
	for k, vs := range params {
		for _, v := range vs {
			u += "&" + k + "=" + url.QueryEscape(v)
		}
	}
	return u
}

// get fetches one API URL, decompresses, and reads the whole body.
// Failures are classified into the typed error taxonomy.
func (c *Client) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.PortalRequests.WithLabelValues(op, "transport").Inc()
		return nil, &TransportError{Op: op, Err: err}
	}
	resp, err := httpclient.DoWithRetry(ctx, c.http, rawURL, c.policy)
	if err != nil {
		metrics.PortalRequests.WithLabelValues(op, "transport").Inc()
		return nil, &TransportError{Op: op, Err: err}
	}
	body, err := httpclient.DecodeBody(resp)
	if err != nil {
		metrics.PortalRequests.WithLabelValues(op, "decode").Inc()
		return nil, &DecodeError{Op: op, Err: err}
	}
	defer body.Close()
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, body)
		metrics.PortalRequests.WithLabelValues(op, "not_found").Inc()
		return nil, &NotFoundError{Kind: "endpoint", ID: op}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, body)
		metrics.PortalRequests.WithLabelValues(op, "transport").Inc()
		return nil, &TransportError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		metrics.PortalRequests.WithLabelValues(op, "transport").Inc()
		return nil, &TransportError{Op: op, Err: err}
	}
	metrics.PortalRequests.WithLabelValues(op, "ok").Inc()
	return data, nil
}

// Authenticate checks credentials against the portal. A reachable portal
// that rejects the account yields a ValidationError.
func (c *Client) Authenticate(ctx context.Context) (*AccountInfo, error) {
	body, err := c.get(ctx, "auth", c.apiURL("", nil))
	if err != nil {
		return nil, err
	}
	var auth struct {
		UserInfo *struct {
			Username string      `json:"username"`
			Status   string      `json:"status"`
			Auth     interface{} `json:"auth"`
			ExpDate  string      `json:"exp_date"`
		} `json:"user_info"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, &DecodeError{Op: "auth", Err: err}
	}
	if auth.UserInfo == nil {
		return nil, &ValidationError{Msg: "auth: portal returned no user_info"}
	}
	if !authOK(auth.UserInfo.Auth) {
		return nil, &ValidationError{Msg: "auth: invalid username or password"}
	}
	return &AccountInfo{
		Username:  auth.UserInfo.Username,
		Status:    auth.UserInfo.Status,
		ExpiresAt: auth.UserInfo.ExpDate,
	}, nil
}

// authOK handles portals returning auth as 1, "1", or true.
func authOK(v interface{}) bool {
	switch x := v.(type) {
	case float64:
		return x == 1
	case string:
		return x == "1"
	case bool:
		return x
	}
	return false
}

// Categories fetches the category list for one tab.
func (c *Client) Categories(ctx context.Context, tab catalog.Tab) ([]catalog.Category, error) {
	var action string
	switch tab {
	case catalog.TabLive:
		action = "get_live_categories"
	case catalog.TabMovies:
		action = "get_vod_categories"
	case catalog.TabSeries:
		action = "get_series_categories"
	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("categories: unknown tab %v", tab)}
	}
	body, err := c.get(ctx, action, c.apiURL(action, nil))
	if err != nil {
		return nil, err
	}
	var raw []struct {
		CategoryID   interface{} `json:"category_id"`
		CategoryName string      `json:"category_name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{Op: action, Err: err}
	}
	cats := make([]catalog.Category, 0, len(raw))
	for _, r := range raw {
		id := idStr(r.CategoryID, 0)
		if id == "" {
			continue
		}
		cats = append(cats, catalog.Category{ID: id, Name: strings.TrimSpace(r.CategoryName)})
	}
	return cats, nil
}

// LiveStreams fetches the channels of one live category.
func (c *Client) LiveStreams(ctx context.Context, categoryID string) ([]catalog.Channel, error) {
	body, err := c.get(ctx, "get_live_streams", c.apiURL("get_live_streams", url.Values{"category_id": {categoryID}}))
	if err != nil {
		return nil, err
	}
	var raw []struct {
		StreamID     interface{} `json:"stream_id"`
		Name         string      `json:"name"`
		EpgChannelID interface{} `json:"epg_channel_id"`
		StreamIcon   string      `json:"stream_icon"`
		CategoryID   interface{} `json:"category_id"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{Op: "get_live_streams", Err: err}
	}
	chans := make([]catalog.Channel, 0, len(raw))
	for i, r := range raw {
		id := idStr(r.StreamID, i+1)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = "Channel " + id
		}
		// Guide ids are matched trim+lowercase against the XMLTV index.
		chans = append(chans, catalog.Channel{
			ID:             id,
			Name:           name,
			GuideChannelID: strings.ToLower(strings.TrimSpace(idStr(r.EpgChannelID, 0))),
			Icon:           r.StreamIcon,
			CategoryID:     idStr(r.CategoryID, 0),
		})
	}
	return chans, nil
}

// VODStreams fetches the movies of one VOD category.
func (c *Client) VODStreams(ctx context.Context, categoryID string) ([]catalog.Movie, error) {
	body, err := c.get(ctx, "get_vod_streams", c.apiURL("get_vod_streams", url.Values{"category_id": {categoryID}}))
	if err != nil {
		return nil, err
	}
	var raw []struct {
		StreamID           interface{} `json:"stream_id"`
		Name               string      `json:"name"`
		ContainerExtension string      `json:"container_extension"`
		StreamIcon         string      `json:"stream_icon"`
		Releasedate        string      `json:"releasedate"`
		CategoryID         interface{} `json:"category_id"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{Op: "get_vod_streams", Err: err}
	}
	movies := make([]catalog.Movie, 0, len(raw))
	for i, r := range raw {
		id := idStr(r.StreamID, i+1)
		if id == "" {
			continue
		}
		movies = append(movies, catalog.Movie{
			ID:           id,
			Name:         strings.TrimSpace(r.Name),
			ContainerExt: r.ContainerExtension,
			Icon:         r.StreamIcon,
			ReleaseDate:  r.Releasedate,
			CategoryID:   idStr(r.CategoryID, 0),
		})
	}
	return movies, nil
}

// Series fetches the series listing of one category.
func (c *Client) Series(ctx context.Context, categoryID string) ([]catalog.SeriesHead, error) {
	body, err := c.get(ctx, "get_series", c.apiURL("get_series", url.Values{"category_id": {categoryID}}))
	if err != nil {
		return nil, err
	}
	var raw []struct {
		SeriesID   interface{} `json:"series_id"`
		Name       string      `json:"name"`
		Cover      string      `json:"cover"`
		CategoryID interface{} `json:"category_id"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{Op: "get_series", Err: err}
	}
	heads := make([]catalog.SeriesHead, 0, len(raw))
	for i, r := range raw {
		id := idStr(r.SeriesID, i+1)
		if id == "" {
			continue
		}
		heads = append(heads, catalog.SeriesHead{
			ID:         id,
			Name:       strings.TrimSpace(r.Name),
			Icon:       r.Cover,
			CategoryID: idStr(r.CategoryID, 0),
		})
	}
	return heads, nil
}

// SeriesInfo fetches a series' seasons and episodes, sorted numerically.
func (c *Client) SeriesInfo(ctx context.Context, seriesID string) ([]catalog.Season, error) {
	body, err := c.get(ctx, "get_series_info", c.apiURL("get_series_info", url.Values{"series_id": {seriesID}}))
	if err != nil {
		return nil, err
	}
	var info struct {
		Episodes map[string][]struct {
			ID                 interface{} `json:"id"`
			Title              string      `json:"title"`
			ContainerExtension string      `json:"container_extension"`
			EpisodeNum         interface{} `json:"episode_num"`
			Season             interface{} `json:"season"`
		} `json:"episodes"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &DecodeError{Op: "get_series_info", Err: err}
	}
	if len(info.Episodes) == 0 {
		return nil, &NotFoundError{Kind: "series", ID: seriesID}
	}
	seasons := make([]catalog.Season, 0, len(info.Episodes))
	for key, raws := range info.Episodes {
		num, _ := strconv.Atoi(key)
		eps := make([]catalog.Episode, 0, len(raws))
		for _, r := range raws {
			id := idStr(r.ID, 0)
			if id == "" {
				continue
			}
			sn := idInt(r.Season, num)
			eps = append(eps, catalog.Episode{
				ID:           id,
				Title:        strings.TrimSpace(r.Title),
				ContainerExt: r.ContainerExtension,
				SeasonNum:    sn,
				EpisodeNum:   idInt(r.EpisodeNum, 0),
			})
		}
		sort.SliceStable(eps, func(i, j int) bool { return eps[i].EpisodeNum < eps[j].EpisodeNum })
		seasons = append(seasons, catalog.Season{Number: num, Episodes: eps})
	}
	sort.SliceStable(seasons, func(i, j int) bool { return seasons[i].Number < seasons[j].Number })
	return seasons, nil
}

// StreamURL builds the playback URL for one stream. ext defaults to m3u8.
func (c *Client) StreamURL(kind StreamKind, id, ext string) string {
	if ext == "" {
		ext = "m3u8"
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		c.base, kind, url.PathEscape(c.user), url.PathEscape(c.pass), url.PathEscape(id), ext)
}

// GuideURL is the portal's XMLTV feed.
func (c *Client) GuideURL() string {
	return c.base + "/xmltv.php?username=" + url.QueryEscape(c.user) + "&password=" + url.QueryEscape(c.pass)
}

// idStr decodes portal IDs that arrive as JSON numbers or strings.
func idStr(v interface{}, fallback int) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case string:
		return strings.TrimSpace(x)
	}
	if fallback > 0 {
		return strconv.Itoa(fallback)
	}
	return ""
}

// idInt decodes numeric fields that arrive as JSON numbers or strings.
func idInt(v interface{}, fallback int) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return fallback
}
