// README: Paginated collector that walks the platform's page-cursor list endpoints.
package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fleetops/internal/logger"
)

type Resource string

const (
	ResourceDrivers Resource = "drivers"
	ResourceRoutes  Resource = "routes"
	ResourceRides   Resource = "rides"
)

// Getter is the slice of the platform gateway the fleet module needs.
type Getter interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
}

// Progress is called once per page with the running record count and the upstream total
// (the running count when the upstream does not report one).
type Progress func(fetched, total int)

type Filter struct {
	PerPage  int
	Params   url.Values
	Progress Progress
}

type Collector struct {
	api   Getter
	delay time.Duration
	log   *zap.Logger
}

// NewCollector spaces page requests by delay; zero disables the pause.
func NewCollector(api Getter, delay time.Duration, log *zap.Logger) *Collector {
	return &Collector{api: api, delay: delay, log: logger.OrNop(log)}
}

type page struct {
	records     []json.RawMessage
	lastPage    int
	total       int
	hasNextKey  bool
	hasNext     bool
	paged       bool
}

// FetchAll returns every record of res matching f. Pages are read in order; a failed page
// aborts the walk and nothing collected so far is returned.
func (c *Collector) FetchAll(ctx context.Context, res Resource, f Filter) ([]json.RawMessage, error) {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	var limiter *rate.Limiter
	if c.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.delay), 1)
	}

	path := "/fleet/" + string(res)
	var all []json.RawMessage
	for n := 1; ; n++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		params := url.Values{}
		for k, v := range f.Params {
			params[k] = v
		}
		params.Set("page", strconv.Itoa(n))
		params.Set("per_page", strconv.Itoa(perPage))

		var body map[string]json.RawMessage
		if err := c.api.Get(ctx, path, params, &body); err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", res, n, err)
		}
		p, err := parsePage(body, string(res))
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", res, n, err)
		}
		if len(p.records) == 0 {
			break
		}
		all = append(all, p.records...)
		c.log.Debug("collected page",
			zap.String("resource", string(res)),
			zap.Int("page", n),
			zap.Int("records", len(p.records)),
			zap.Int("fetched", len(all)))
		if f.Progress != nil {
			total := p.total
			if total <= 0 {
				total = len(all)
			}
			f.Progress(len(all), total)
		}

		if p.paged {
			if p.hasNextKey && !p.hasNext {
				break
			}
			if p.lastPage > 0 && n >= p.lastPage {
				break
			}
		}
		if len(p.records) < perPage {
			break
		}
	}
	c.log.Info("collection complete", zap.String("resource", string(res)), zap.Int("records", len(all)))
	return all, nil
}

// parsePage accepts {<resource>: {data, ...}}, {data: {data, ...}}, or a bare list under
// either key.
func parsePage(body map[string]json.RawMessage, key string) (page, error) {
	raw, ok := body[key]
	if !ok {
		raw, ok = body["data"]
	}
	if !ok || isNull(raw) {
		return page{}, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return page{records: list}, nil
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw, &meta); err != nil {
		return page{}, fmt.Errorf("%s: unrecognised page envelope", key)
	}
	p := page{paged: true}
	if d, ok := meta["data"]; ok && !isNull(d) {
		if err := json.Unmarshal(d, &p.records); err != nil {
			return page{}, fmt.Errorf("%s.data: %w", key, err)
		}
	}
	p.lastPage = intField(meta["last_page"])
	p.total = intField(meta["total"])
	if next, ok := meta["next_page_url"]; ok {
		p.hasNextKey = true
		p.hasNext = hasNextPage(next)
	}
	return p, nil
}

// hasNextPage reads next_page_url. Only null, false or a blank string end the walk; any
// other value, URL or not, means another page exists.
func hasNextPage(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s) != ""
	}
	return !bytes.Equal(bytes.TrimSpace(raw), []byte("false"))
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// intField reads a number that may arrive quoted.
func intField(raw json.RawMessage) int {
	if isNull(raw) {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		n = json.Number(s)
	}
	i, err := n.Int64()
	if err != nil {
		return 0
	}
	return int(i)
}
