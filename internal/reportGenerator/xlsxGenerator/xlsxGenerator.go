package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finhold/holdings_engine/internal/model"
	"github.com/finhold/holdings_engine/utils"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Holdings"
	historySheet = "Realized PL"

	dateLayout = "2006-01-02"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the holdings report workbook: one sheet with the
// per-security summaries, one with every sale and its realized P/L. Values
// land in the cells at full precision, formatting is left to the viewer.
func (g *XLSXGenerator) Generate(ctx context.Context, report model.HoldingsReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(report.Summaries) == 0 {
		return nil, "", errors.New("empty report")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSummarySheet(ctx, f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillHistorySheet(ctx, f, report); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillSummarySheet(ctx context.Context, f *excelize.File, report model.HoldingsReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillSummarySheet"

	_, err := f.NewSheet(summarySheet)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = f.MergeCell(summarySheet, "A1", "I1")
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Holdings for account %d", report.AccountID)
	if !report.AsOf.IsZero() {
		title = fmt.Sprintf("%s as of %s", title, report.AsOf.Format(dateLayout))
	}
	f.SetCellValue(summarySheet, "A1", title)

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(summarySheet, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(summarySheet, "A2", "security")
	_ = f.SetCellStr(summarySheet, "B2", "code")
	_ = f.SetCellStr(summarySheet, "C2", "holding")
	_ = f.SetCellStr(summarySheet, "D2", "buy qty")
	_ = f.SetCellStr(summarySheet, "E2", "sell qty")
	_ = f.SetCellStr(summarySheet, "F2", "buy amount")
	_ = f.SetCellStr(summarySheet, "G2", "sell amount")
	_ = f.SetCellStr(summarySheet, "H2", "weighted avg buy price")
	_ = f.SetCellStr(summarySheet, "I2", "profit")

	for i, s := range report.Summaries {
		row := i + 3
		_ = f.SetCellStr(summarySheet, fmt.Sprintf("A%d", row), s.SecurityName)
		_ = f.SetCellStr(summarySheet, fmt.Sprintf("B%d", row), s.SecurityCode)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), s.CurrentHolding.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), s.TotalBuyQty.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), s.TotalSellQty.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), s.TotalBuyAmount.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("G%d", row), s.TotalSellAmount.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("H%d", row), s.WeightedAvgBuyPrice.InexactFloat64())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("I%d", row), s.Profit.InexactFloat64())
	}

	return nil
}

func (g *XLSXGenerator) fillHistorySheet(ctx context.Context, f *excelize.File, report model.HoldingsReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillHistorySheet"

	_, err := f.NewSheet(historySheet)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = f.MergeCell(historySheet, "A1", "G1")
	if err != nil {
		return err
	}

	f.SetCellValue(historySheet, "A1", "Realized profit / loss")

	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(historySheet, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(historySheet, "A2", "date")
	_ = f.SetCellStr(historySheet, "B2", "security")
	_ = f.SetCellStr(historySheet, "C2", "type")
	_ = f.SetCellStr(historySheet, "D2", "quantity")
	_ = f.SetCellStr(historySheet, "E2", "price")
	_ = f.SetCellStr(historySheet, "F2", "amount")
	_ = f.SetCellStr(historySheet, "G2", "realized p/l")

	row := 2
	for _, hist := range report.Histories {
		for _, snap := range hist.Snapshots {
			if snap.RealizedPL == nil {
				continue
			}
			row++
			_ = f.SetCellStr(historySheet, fmt.Sprintf("A%d", row), snap.Date.Format(dateLayout))
			_ = f.SetCellStr(historySheet, fmt.Sprintf("B%d", row), hist.SecurityName)
			_ = f.SetCellStr(historySheet, fmt.Sprintf("C%d", row), snap.Type)
			_ = f.SetCellValue(historySheet, fmt.Sprintf("D%d", row), snap.Quantity.InexactFloat64())
			_ = f.SetCellValue(historySheet, fmt.Sprintf("E%d", row), snap.Price.InexactFloat64())
			_ = f.SetCellValue(historySheet, fmt.Sprintf("F%d", row), snap.TotalAmount.InexactFloat64())
			_ = f.SetCellValue(historySheet, fmt.Sprintf("G%d", row), snap.RealizedPL.InexactFloat64())
		}
	}

	return nil
}
