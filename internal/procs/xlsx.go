package procs

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/soochol/flume/internal/flow"
)

// XLSXSource reads a spreadsheet at initialization and emits one row per
// step as a []string of cell values.
type XLSXSource struct {
	flow.BaseHooks
	*flow.Base
	itemSource
}

func NewXLSXSource(conf *flow.Config) (*XLSXSource, error) {
	b, err := flow.NewBase(conf)
	if err != nil {
		return nil, err
	}
	p := &XLSXSource{Base: b, itemSource: newItemSource()}

	if err := b.DeclareConfigurationKey("path", flow.ConfInfo{
		Default:     "",
		Description: "Path of the XLSX file to read.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareConfigurationKey("sheet", flow.ConfInfo{
		Default:     "",
		Description: "Sheet to read; empty reads every sheet in order.",
	}); err != nil {
		return nil, err
	}
	if err := b.DeclareOutputPort(portOut, flow.PortInfo{
		Type:        "table/row",
		Flags:       flow.NewPortFlags(flow.FlagOutputConst),
		Description: "One spreadsheet row per packet.",
	}); err != nil {
		return nil, err
	}

	b.BindHooks(p)
	return p, nil
}

func (p *XLSXSource) OnInit() error {
	path, err := flow.ConfigValue[string](p.Base, "path")
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("process %q: the path configuration value is required", p.Name())
	}
	sheet, err := flow.ConfigValue[string](p.Base, "sheet")
	if err != nil {
		return err
	}

	xf, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open xlsx %q: %w", path, err)
	}
	defer xf.Close()

	sheets := xf.GetSheetList()
	if sheet != "" {
		sheets = []string{sheet}
	}
	for _, name := range sheets {
		rows, err := xf.GetRows(name)
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", name, err)
		}
		for _, row := range rows {
			p.items = append(p.items, row)
		}
	}
	return nil
}

func (p *XLSXSource) OnStep(ctx context.Context) error {
	return p.emit(ctx, p.Base)
}
