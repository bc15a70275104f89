package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"textile-erp/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestWriteCSVQuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Table{
		Header: []string{"A", "B"},
		Rows: [][]string{
			{`say "hi"`, "plain"},
			{"", "x,y"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "\"A\",\"B\"\r\n" +
		"\"say \"\"hi\"\"\",\"plain\"\r\n" +
		"\"\",\"x,y\"\r\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%q\nwant\n%q", got, want)
	}
}

func TestPurchaseHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Purchases(nil)); err != nil {
		t.Fatal(err)
	}
	want := `"Purchase No","Purchase Date","Vendor Ledger ID","Material Type","Total Meters","Rate Per Meter",` +
		`"Total Amount","GST Percent","Invoice Number","Remarks","Created At"` + "\r\n"
	if buf.String() != want {
		t.Errorf("header = %q, want %q", buf.String(), want)
	}
}

func TestPurchaseRow(t *testing.T) {
	vendor := uuid.MustParse("0b3c3a5e-8f39-4e57-9bc8-2a8f5b8a2d11")
	p := model.Purchase{
		PurchaseNo:     "PUR-1",
		PurchaseDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		VendorLedgerID: vendor,
		MaterialType:   model.MaterialCotton,
		TotalMeters:    decimal.RequireFromString("100.5"),
		RatePerMeter:   decimal.RequireFromString("50"),
		TotalAmount:    decimal.RequireFromString("5276.25"),
		GSTPercent:     decimal.RequireFromString("5"),
		InvoiceNumber:  "INV-9",
		Remarks:        `12" width`,
	}
	p.CreatedAt = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	table := Purchases([]model.Purchase{p})
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(table.Rows))
	}
	row := table.Rows[0]
	if len(row) != len(PurchaseHeader) {
		t.Fatalf("row has %d fields, header has %d", len(row), len(PurchaseHeader))
	}
	if row[1] != "2024-03-05" || row[2] != vendor.String() || row[6] != "5276.25" {
		t.Errorf("unexpected row %v", row)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"12"" width"`) {
		t.Errorf("embedded quote not doubled: %q", buf.String())
	}
}

func TestRowsMatchHeaders(t *testing.T) {
	shorting := model.ShortingEntry{TotalPieces: 200, GoodPieces: 180, DamagedPieces: 15, RejectedPieces: 5}
	if err := shorting.SetSizes(map[string]int{"M": 120, "L": 80}); err != nil {
		t.Fatal(err)
	}
	stitching := model.StitchingChallan{}
	if err := stitching.SetBatches([]string{"B-1", "B-2"}); err != nil {
		t.Fatal(err)
	}

	tables := []Table{
		WeaverChallans([]model.WeaverChallan{{}}),
		ShortingEntries([]model.ShortingEntry{shorting}),
		StitchingChallans([]model.StitchingChallan{stitching}),
		InventoryItems([]model.InventoryItem{{}}),
		Ledgers([]model.Ledger{{}}),
		Expenses([]model.Expense{{}}),
		PaymentVouchers([]model.PaymentVoucher{{}}),
	}
	for _, tbl := range tables {
		for _, row := range tbl.Rows {
			if len(row) != len(tbl.Header) {
				t.Errorf("%s: row has %d fields, header has %d", tbl.Name, len(row), len(tbl.Header))
			}
		}
	}

	row := tables[1].Rows[0]
	if row[10] != "90.0" {
		t.Errorf("quality rate = %q, want 90.0", row[10])
	}
	if row[11] != "L:80; M:120" {
		t.Errorf("size breakdown = %q", row[11])
	}
	if h := tables[0].Header[9]; h != "Meters Per Taka" || tables[0].Rows[0][9] != "0.00" {
		t.Errorf("meters per taka column = %q / %q", h, tables[0].Rows[0][9])
	}
	if row[13] != "0" {
		t.Errorf("expected pieces = %q, want 0 without a cut length", row[13])
	}
	if tables[2].Rows[0][6] != "B-1; B-2" {
		t.Errorf("batch numbers = %q", tables[2].Rows[0][6])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	table := Table{Name: "purchases", Header: []string{"No", "Amount"}, Rows: [][]string{{"PUR-1", "10.00"}}}
	if err := WriteXLSX(&buf, table); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("purchases")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "No" || rows[1][0] != "PUR-1" || rows[1][1] != "10.00" {
		t.Errorf("unexpected sheet contents %v", rows)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatCSV, "CSV": FormatCSV, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("ParseFormat(pdf) should fail")
	}
}
