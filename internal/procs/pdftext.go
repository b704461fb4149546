package procs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/soochol/flume/internal/flow"
)

// PDFTextSource extracts the plain text of a PDF at initialization and
// emits one packet per page. Pages whose text is empty or cannot be
// extracted are skipped.
type PDFTextSource struct {
	flow.BaseHooks
	*flow.Base
	itemSource
}

func NewPDFTextSource(conf *flow.Config) (*PDFTextSource, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &PDFTextSource{Base: b, itemSource: newItemSource()}

	if err := b.DeclareConfigurationKey("path", flow.ConfInfo{
		Default:     "",
		Description: "Path of the PDF file to read.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareOutputPort(portOut, flow.PortInfo{
		Type:        "text",
		Flags:       flow.NewPortFlags(flow.FlagOutputConst),
		Description: "The text of one page per packet.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *PDFTextSource) OnInit() error {
	path, err := flow.ConfigValue[string](p.Base, "path")
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("process %q: the path configuration value is required", p.Name())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pdf %q: %w", path, err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parse pdf %q: %w", path, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(content); text != "" {
			p.items = append(p.items, text)
		}
	}
	return nil
}

func (p *PDFTextSource) OnStep(ctx context.Context) error {
	return p.emit(ctx, p.Base)
}
