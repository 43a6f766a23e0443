package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PackingSlipData struct {
	TenantName  string
	OrderNumber string
	PlacedAt    string
	Status      string

	RecipientName  string
	RecipientPhone string
	AddressLines   []string

	Items       []PackingSlipItem
	TotalPoints int64
}

type PackingSlipItem struct {
	ProductName string
	Quantity    int64
	PointCost   int64
	LineTotal   int64
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GeneratePackingSlip(ctx context.Context, slip PackingSlipData) (io.Reader, error) {
	if slip.OrderNumber == "" {
		return nil, errors.New("packing slip requires an order number")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Packing slip", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, slip.TenantName, props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Order: "+slip.OrderNumber, props.Text{Top: 0}),
			text.New("Placed: "+slip.PlacedAt, props.Text{Top: 4}),
			text.New("Status: "+slip.Status, props.Text{Top: 8}),
		),
		col.New(6),
	)

	shipTo := col.New(12).Add(
		text.New("Ship to", props.Text{Style: fontstyle.Bold}),
		text.New(slip.RecipientName, props.Text{Top: 5}),
	)
	top := 9.0
	for _, l := range slip.AddressLines {
		if l == "" {
			continue
		}
		shipTo.Add(text.New(l, props.Text{Top: top}))
		top += 4
	}
	if slip.RecipientPhone != "" {
		shipTo.Add(text.New("Phone: "+slip.RecipientPhone, props.Text{Top: top}))
		top += 4
	}
	m.AddRow(top+6, shipTo)

	m.AddRow(10,
		text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Points", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range slip.Items {
		m.AddRow(8,
			text.NewCol(6, item.ProductName, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d", item.PointCost), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d", item.LineTotal), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total points", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, fmt.Sprintf("%d", slip.TotalPoints), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
