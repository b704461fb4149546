package procs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/soochol/flume/internal/flow"
)

// RSSSource fetches an RSS/Atom/JSON feed at initialization and emits one
// item per step: a map with title, link, published date, and description.
type RSSSource struct {
	flow.BaseHooks
	*flow.Base
	itemSource
}

func NewRSSSource(conf *flow.Config) (*RSSSource, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &RSSSource{Base: b, itemSource: newItemSource()}

	if err := b.DeclareConfigurationKey("url", flow.ConfInfo{
		Default:     "",
		Description: "URL of the feed to fetch.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareConfigurationKey("max_items", flow.ConfInfo{
		Default:     20,
		Description: "Maximum number of items to emit.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareOutputPort(portOut, flow.PortInfo{
		Type:        "feed/item",
		Flags:       flow.NewPortFlags(flow.FlagOutputConst),
		Description: "One feed item per packet.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *RSSSource) OnInit() error {
	url, err := flow.ConfigValue[string](p.Base, "url")
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("process %q: the url configuration value is required", p.Name())
	}
	maxItems, err := flow.ConfigValue[int](p.Base, "max_items")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: 30 * time.Second}

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return fmt.Errorf("fetch feed %q: %w", url, err)
	}

	for _, item := range feed.Items {
		if maxItems > 0 && len(p.items) >= maxItems {
			break
		}
		published := ""
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format("2006-01-02")
		} else if item.Published != "" {
			published = item.Published
		}
		p.items = append(p.items, map[string]any{
			"title":       item.Title,
			"link":        item.Link,
			"published":   published,
			"description": item.Description,
		})
	}
	return nil
}

func (p *RSSSource) OnStep(ctx context.Context) error {
	return p.emit(ctx, p.Base)
}
