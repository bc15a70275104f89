package export

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"textile-erp/internal/calc"
	"textile-erp/internal/model"

	"github.com/google/uuid"
)

var (
	PurchaseHeader = []string{
		"Purchase No", "Purchase Date", "Vendor Ledger ID", "Material Type", "Total Meters", "Rate Per Meter",
		"Total Amount", "GST Percent", "Invoice Number", "Remarks", "Created At",
	}
	WeaverChallanHeader = []string{
		"Challan No", "Challan Date", "Purchase ID", "Weaver Ledger ID", "Material Type", "Batch Number",
		"MS Party Name", "Total Grey Meters", "Taka Count", "Meters Per Taka", "Quantity Sent Meters", "Quantity Received Meters",
		"Rate Per Meter", "Vendor Amount", "Weaving Loss Meters", "Loss Percentage", "Transport Name",
		"LR Number", "Transport Charge", "Status", "Remarks", "Created At",
	}
	ShortingEntryHeader = []string{
		"Entry No", "Entry Date", "Weaver Challan ID", "Purchase ID", "Material Type", "Batch Number",
		"Total Pieces", "Good Pieces", "Damaged Pieces", "Rejected Pieces", "Quality Rate", "Size Breakdown",
		"Meters Per Piece", "Expected Pieces", "Remarks", "Created At",
	}
	StitchingChallanHeader = []string{
		"Challan No", "Challan Date", "Ledger ID", "Shorting Entry ID", "Product Name", "SKU", "Batch Numbers",
		"Quantity Sent Pieces", "Quantity Received Pieces", "Stitching Loss Pieces", "Loss Percentage",
		"Rate Per Piece", "Amount Payable", "Good Pieces", "Bad Pieces", "Wastage Pieces", "Status",
		"Transport Name", "LR Number", "Transport Charge", "Remarks", "Created At",
	}
	InventoryItemHeader = []string{
		"Inventory No", "Inventory Date", "Source Challan ID", "Product Name", "SKU", "Quantity",
		"Good Quantity", "Bad Quantity", "Wastage Quantity", "Classification", "Quality Grade",
		"Price Per Piece", "Total Cost", "Remarks", "Created At",
	}
	LedgerHeader = []string{
		"Name", "Ledger Type", "Contact Person", "Phone", "Email", "Address", "City", "State", "Pincode",
		"GST Number", "PAN Number", "Active", "Created At",
	}
	ExpenseHeader = []string{
		"Expense No", "Expense Date", "Ledger ID", "Challan Type", "Challan ID", "Category", "Amount",
		"Payment Mode", "Purpose", "Created At",
	}
	PaymentVoucherHeader = []string{
		"Voucher No", "Voucher Date", "Ledger ID", "Challan Type", "Challan ID", "Amount", "Payment Mode",
		"Reference Number", "Purpose", "Created At",
	}
)

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func Purchases(list []model.Purchase) Table {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			p.PurchaseNo, date(p.PurchaseDate), p.VendorLedgerID.String(), p.MaterialType,
			p.TotalMeters.String(), p.RatePerMeter.String(), p.TotalAmount.StringFixed(2), p.GSTPercent.String(),
			p.InvoiceNumber, p.Remarks, timestamp(p.CreatedAt),
		})
	}
	return Table{Name: "purchases", Header: PurchaseHeader, Rows: rows}
}

func WeaverChallans(list []model.WeaverChallan) Table {
	rows := make([][]string, 0, len(list))
	for _, w := range list {
		rows = append(rows, []string{
			w.ChallanNo, date(w.ChallanDate), optionalID(w.PurchaseID), w.WeaverLedgerID.String(), w.MaterialType,
			w.BatchNumber, w.MSPartyName, w.TotalGreyMeters.String(), itoa(w.TakaCount), w.MetersPerTaka.StringFixed(2),
			w.QuantitySentMeters.String(), w.QuantityReceivedMeters.String(), w.RatePerMeter.String(),
			w.VendorAmount.StringFixed(2), w.WeavingLossMeters.String(), w.LossPercentage.StringFixed(2),
			w.TransportName, w.LRNumber, w.TransportCharge.StringFixed(2), string(w.Status), w.Remarks,
			timestamp(w.CreatedAt),
		})
	}
	return Table{Name: "weaver-challans", Header: WeaverChallanHeader, Rows: rows}
}

func ShortingEntries(list []model.ShortingEntry) Table {
	rows := make([][]string, 0, len(list))
	for _, e := range list {
		rows = append(rows, []string{
			e.EntryNo, date(e.EntryDate), optionalID(e.WeaverChallanID), optionalID(e.PurchaseID), e.MaterialType,
			e.BatchNumber, itoa(e.TotalPieces), itoa(e.GoodPieces), itoa(e.DamagedPieces), itoa(e.RejectedPieces),
			calc.QualityRate(e.TotalPieces, e.GoodPieces), sizeBreakdown(e), e.MetersPerPiece.String(), itoa(e.ExpectedPieces),
			e.Remarks, timestamp(e.CreatedAt),
		})
	}
	return Table{Name: "shorting-entries", Header: ShortingEntryHeader, Rows: rows}
}

// sizeBreakdown renders the map as "L:40; M:80" in size order
func sizeBreakdown(e model.ShortingEntry) string {
	sizes, err := e.Sizes()
	if err != nil || len(sizes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sizes))
	for k := range sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+itoa(sizes[k]))
	}
	return strings.Join(parts, "; ")
}

func StitchingChallans(list []model.StitchingChallan) Table {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		batches, _ := s.Batches()
		rows = append(rows, []string{
			s.ChallanNo, date(s.ChallanDate), s.LedgerID.String(), optionalID(s.ShortingEntryID), s.ProductName,
			s.SKU, strings.Join(batches, "; "), itoa(s.QuantitySentPieces), itoa(s.QuantityReceivedPieces),
			itoa(s.StitchingLossPieces), s.LossPercentage.StringFixed(2), s.RatePerPiece.String(),
			s.AmountPayable.StringFixed(2), itoa(s.GoodPieces), itoa(s.BadPieces), itoa(s.WastagePieces),
			string(s.Status), s.TransportName, s.LRNumber, s.TransportCharge.StringFixed(2), s.Remarks,
			timestamp(s.CreatedAt),
		})
	}
	return Table{Name: "stitching-challans", Header: StitchingChallanHeader, Rows: rows}
}

func InventoryItems(list []model.InventoryItem) Table {
	rows := make([][]string, 0, len(list))
	for _, it := range list {
		rows = append(rows, []string{
			it.InventoryNo, date(it.InventoryDate), it.SourceChallanID.String(), it.ProductName, it.SKU,
			itoa(it.Quantity), itoa(it.GoodQuantity), itoa(it.BadQuantity), itoa(it.WastageQuantity),
			it.Classification, it.QualityGrade, it.PricePerPiece.String(), it.TotalCost.StringFixed(2),
			it.Remarks, timestamp(it.CreatedAt),
		})
	}
	return Table{Name: "inventory-items", Header: InventoryItemHeader, Rows: rows}
}

func Ledgers(list []model.Ledger) Table {
	rows := make([][]string, 0, len(list))
	for _, l := range list {
		rows = append(rows, []string{
			l.Name, l.LedgerType, l.ContactPerson, l.Phone, l.Email, l.Address, l.City, l.State, l.Pincode,
			l.GSTNumber, l.PANNumber, strconv.FormatBool(l.IsActive), timestamp(l.CreatedAt),
		})
	}
	return Table{Name: "ledgers", Header: LedgerHeader, Rows: rows}
}

func Expenses(list []model.Expense) Table {
	rows := make([][]string, 0, len(list))
	for _, e := range list {
		rows = append(rows, []string{
			e.ExpenseNo, date(e.ExpenseDate), e.LedgerID.String(), e.ChallanType, optionalID(e.ChallanID),
			e.Category, e.Amount.StringFixed(2), e.PaymentMode, e.Purpose, timestamp(e.CreatedAt),
		})
	}
	return Table{Name: "expenses", Header: ExpenseHeader, Rows: rows}
}

func PaymentVouchers(list []model.PaymentVoucher) Table {
	rows := make([][]string, 0, len(list))
	for _, v := range list {
		rows = append(rows, []string{
			v.VoucherNo, date(v.VoucherDate), v.LedgerID.String(), v.ChallanType, optionalID(v.ChallanID),
			v.Amount.StringFixed(2), v.PaymentMode, v.ReferenceNumber, v.Purpose, timestamp(v.CreatedAt),
		})
	}
	return Table{Name: "payment-vouchers", Header: PaymentVoucherHeader, Rows: rows}
}
