package procs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/soochol/flume/internal/flow"
)

// ScrapeSource fetches a web page at initialization, applies a CSS
// selector, and emits one matched element per step: its text, or a named
// attribute when configured.
type ScrapeSource struct {
	flow.BaseHooks
	*flow.Base
	itemSource
}

func NewScrapeSource(conf *flow.Config) (*ScrapeSource, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &ScrapeSource{Base: b, itemSource: newItemSource()}

	keys := []struct {
		key  string
		def  any
		desc string
	}{
		{"url", "", "URL of the page to scrape."},
		{"selector", "body", "CSS selector for the elements to extract."},
		{"attribute", "", "Attribute to extract instead of element text."},
		{"limit", 30, "Maximum number of elements to emit."},
	}
	for _, k := range keys {
		if err := b.DeclareConfigurationKey(k.key, flow.ConfInfo{Default: k.def, Description: k.desc}); err != nil {
			return nil, err
		}
	}
	if err := b.DeclareOutputPort(portOut, flow.PortInfo{
		Type:        "text",
		Flags:       flow.NewPortFlags(flow.FlagOutputConst),
		Description: "One extracted element per packet.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *ScrapeSource) OnInit() error {
	url, err := flow.ConfigValue[string](p.Base, "url")
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("process %q: the url configuration value is required", p.Name())
	}
	selector, err := flow.ConfigValue[string](p.Base, "selector")
	if err != nil {
		return err
	}
	attribute, err := flow.ConfigValue[string](p.Base, "attribute")
	if err != nil {
		return err
	}
	limit, err := flow.ConfigValue[int](p.Base, "limit")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; FlumeBot/1.0)")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch page %q: %w", url, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse page %q: %w", url, err)
	}

	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limit > 0 && len(p.items) >= limit {
			return false
		}
		var val string
		if attribute != "" {
			val, _ = s.Attr(attribute)
		} else {
			val = strings.TrimSpace(s.Text())
		}
		if val != "" {
			p.items = append(p.items, val)
		}
		return true
	})
	return nil
}

func (p *ScrapeSource) OnStep(ctx context.Context) error {
	return p.emit(ctx, p.Base)
}
